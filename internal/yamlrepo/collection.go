// Package yamlrepo stores records as one YAML document per id under a
// storage prefix. The per-domain repositoryimpl packages build on it.
package yamlrepo

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sedeops/autoassign/pkg/cerr"
	"github.com/sedeops/autoassign/pkg/storage"
)

// Collection is a typed view of storage objects under Prefix. Target is the
// human-readable noun used in error messages ("task", "worker").
type Collection[T any] struct {
	Storage storage.Storage
	Prefix  string
	Target  string
}

func (c *Collection[T]) Path(id string) string {
	return fmt.Sprintf("%s/%s.yaml", c.Prefix, id)
}

// ValidID reports whether id names a single record directly under Prefix.
func ValidID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && !strings.Contains(id, "..")
}

// notFound is what reads return for an id that cannot name a record.
func (c *Collection[T]) notFound() error {
	return cerr.NewError(cerr.NotFound, fmt.Sprintf("%s not found", c.Target), nil)
}

func (c *Collection[T]) invalidID(id string) error {
	return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid %s id", c.Target), nil).
		AddFieldViolation("id", "path", fmt.Sprintf("%q must not contain path separators or \"..\"", id))
}

func (c *Collection[T]) Create(ctx context.Context, id string, v *T) error {
	if !ValidID(id) {
		return c.invalidID(id)
	}
	exists, err := c.Storage.Exists(ctx, c.Path(id))
	if err != nil {
		return cerr.WrapStorageWriteError(c.Target, err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("%s already exists", c.Target), nil)
	}
	return c.Put(ctx, id, v)
}

// Put writes v unconditionally.
func (c *Collection[T]) Put(ctx context.Context, id string, v *T) error {
	if !ValidID(id) {
		return c.invalidID(id)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return cerr.WrapMarshalError(c.Target, err)
	}
	if err := c.Storage.Write(ctx, c.Path(id), data); err != nil {
		return cerr.WrapStorageWriteError(c.Target, err)
	}
	return nil
}

// Update writes v only if a record with id already exists.
func (c *Collection[T]) Update(ctx context.Context, id string, v *T) error {
	if !ValidID(id) {
		return c.notFound()
	}
	exists, err := c.Storage.Exists(ctx, c.Path(id))
	if err != nil {
		return cerr.WrapStorageWriteError(c.Target, err)
	}
	if !exists {
		return c.notFound()
	}
	return c.Put(ctx, id, v)
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	if !ValidID(id) {
		return nil, c.notFound()
	}
	return c.read(ctx, c.Path(id))
}

func (c *Collection[T]) read(ctx context.Context, p string) (*T, error) {
	data, err := c.Storage.Read(ctx, p)
	if err != nil {
		return nil, cerr.WrapStorageReadError(c.Target, err)
	}
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, cerr.WrapUnmarshalError(c.Target, err)
	}
	return &v, nil
}

// List returns every record for which keep reports true, in path order.
// A nil keep returns everything. A record that fails to read or decode
// aborts the listing rather than being skipped.
func (c *Collection[T]) List(ctx context.Context, keep func(*T) bool) ([]*T, error) {
	paths, err := c.Storage.List(ctx, c.Prefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError(c.Target, err)
	}
	out := make([]*T, 0, len(paths))
	for _, p := range paths {
		v, err := c.read(ctx, p)
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if !ValidID(id) {
		return c.notFound()
	}
	if err := c.Storage.Delete(ctx, c.Path(id)); err != nil {
		return cerr.WrapStorageDeleteError(c.Target, err)
	}
	return nil
}
