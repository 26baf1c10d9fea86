package types

import "context"

// APIClient is the REST surface of the provider the synchronizer needs.
type APIClient interface {
	// GetClass returns the class resource, or (nil, nil) when it does not
	// exist. Any other failure is an error.
	GetClass(ctx context.Context, kind ObjectKind, classID string) (*Template, error)
	InsertClass(ctx context.Context, kind ObjectKind, template *Template) error
	// PatchObject applies a partial update to an existing object.
	PatchObject(ctx context.Context, kind ObjectKind, objectID string, patch *WalletObject) error
}
