package store

import (
	"time"

	"github.com/taskchain/taskchain/pkg/derive"
	"github.com/taskchain/taskchain/pkg/record"
)

// Snapshot is the locally cached state of the remote task store.
type Snapshot struct {
	Updated   time.Time        `yaml:"updated"`
	SyncToken string           `yaml:"sync_token,omitempty"`
	Items     []map[string]any `yaml:"items"`
	Projects  []map[string]any `yaml:"projects"`
	Labels    []map[string]any `yaml:"labels"`
}

// Records builds fresh task records from the cached items.
func (s *Snapshot) Records() []*record.Record {
	if s == nil {
		return []*record.Record{}
	}
	return record.FromRaw(s.Items)
}

// SideData returns the project and label lists records are joined against.
func (s *Snapshot) SideData() derive.SideData {
	if s == nil {
		return derive.SideData{}
	}
	return derive.SideData{Projects: s.Projects, Labels: s.Labels}
}

// ProjectID returns the id of the project with the given name.
func (s *Snapshot) ProjectID(name string) (string, bool) {
	return findID(s.Projects, name)
}

// LabelID returns the id of the label with the given name.
func (s *Snapshot) LabelID(name string) (string, bool) {
	return findID(s.Labels, name)
}

func findID(items []map[string]any, name string) (string, bool) {
	for _, item := range items {
		if record.FromAny(item["name"]).String() == name {
			return record.FromAny(item["id"]).String(), true
		}
	}
	return "", false
}
