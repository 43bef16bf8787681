// Package store bundles the repositories the service needs so they can be
// backed by object storage or PostgreSQL interchangeably.
package store

import (
	auditlogrepo "github.com/sedeops/autoassign/internal/auditlog/repositoryimpl"
	groupworkerrepo "github.com/sedeops/autoassign/internal/groupworker/repositoryimpl"
	propertygrouprepo "github.com/sedeops/autoassign/internal/propertygroup/repositoryimpl"
	pushsubrepo "github.com/sedeops/autoassign/internal/pushsubscription/repositoryimpl"
	taskrepo "github.com/sedeops/autoassign/internal/task/repositoryimpl"
	workerrepo "github.com/sedeops/autoassign/internal/worker/repositoryimpl"

	"github.com/sedeops/autoassign/internal/auditlog"
	"github.com/sedeops/autoassign/internal/groupworker"
	"github.com/sedeops/autoassign/internal/propertygroup"
	"github.com/sedeops/autoassign/internal/pushsubscription"
	"github.com/sedeops/autoassign/internal/task"
	"github.com/sedeops/autoassign/internal/worker"
	"github.com/sedeops/autoassign/pkg/storage"
)

type Repositories struct {
	Tasks             task.Repository
	Groups            propertygroup.Repository
	GroupWorkers      groupworker.Repository
	Workers           worker.Repository
	AuditLog          auditlog.Repository
	PushSubscriptions pushsubscription.Repository

	closeFn func() error
}

// Close releases the backing connection, if any.
func (r *Repositories) Close() error {
	if r.closeFn == nil {
		return nil
	}
	return r.closeFn()
}

// WithCloser returns r with fn run on Close.
func (r *Repositories) WithCloser(fn func() error) *Repositories {
	r.closeFn = fn
	return r
}

// NewYAMLRepositories keeps every record as a YAML object in s.
func NewYAMLRepositories(s storage.Storage) *Repositories {
	return &Repositories{
		Tasks:             taskrepo.NewYAMLRepository(s),
		Groups:            propertygrouprepo.NewYAMLRepository(s),
		GroupWorkers:      groupworkerrepo.NewYAMLRepository(s),
		Workers:           workerrepo.NewYAMLRepository(s),
		AuditLog:          auditlogrepo.NewYAMLRepository(s),
		PushSubscriptions: pushsubrepo.NewYAMLRepository(s),
	}
}
