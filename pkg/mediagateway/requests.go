package mediagateway

// ListFoldersRequest contains parameters for listing folders.
type ListFoldersRequest struct {
	Token string
}

// CreateFolderRequest contains parameters for creating a folder.
type CreateFolderRequest struct {
	Token      string
	FolderPath string
}

// RenameFolderRequest contains parameters for renaming a folder.
type RenameFolderRequest struct {
	Token    string
	FromPath string
	ToPath   string
}

// DeleteFolderRequest contains parameters for deleting a folder.
type DeleteFolderRequest struct {
	Token      string
	FolderPath string
}

// DeleteAssetRequest contains parameters for deleting an asset.
type DeleteAssetRequest struct {
	Token    string
	PublicID string
}

// UploadGrantRequest contains parameters for issuing a signed upload grant.
// Token may be empty; an unauthenticated request is restricted to the
// gateway's default upload folder.
type UploadGrantRequest struct {
	Token  string
	Folder string
}
