// Package access centralises the ownership check applied to every
// user-owned resource.
package access

import (
	"context"

	"github.com/hongminglow/smartdash-be/internal/storage"
)

// Owned is implemented by resources that belong to a single user.
type Owned interface {
	OwnerID() string
}

// LoadOwned loads a resource by id and requires it to belong to userID.
// It returns storage.ErrNotFound when nothing matches and storage.ErrForbidden
// when the resource belongs to someone else.
func LoadOwned[T Owned](ctx context.Context, load func(context.Context, string) (T, error), id, userID string) (T, error) {
	var zero T
	res, err := load(ctx, id)
	if err != nil {
		return zero, err
	}
	if res.OwnerID() != userID {
		return zero, storage.ErrForbidden
	}
	return res, nil
}
