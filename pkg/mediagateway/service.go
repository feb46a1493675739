package mediagateway

import "context"

// Service defines the main interface for the media gateway
type Service interface {
	// Folder operations
	ListFolders(ctx context.Context, req ListFoldersRequest) ([]Folder, error)
	CreateFolder(ctx context.Context, req CreateFolderRequest) (*Folder, error)
	RenameFolder(ctx context.Context, req RenameFolderRequest) (*Folder, error)
	DeleteFolder(ctx context.Context, req DeleteFolderRequest) error

	// Asset operations
	DeleteAsset(ctx context.Context, req DeleteAssetRequest) error

	// Signed upload grants
	IssueUploadGrant(ctx context.Context, req UploadGrantRequest) (*UploadGrant, error)
}
