package model

import (
	"path/filepath"
	"time"
)

// StoreOptions configures a storage engine. MaxAge and DeleteInterval are in
// seconds; zero disables automatic retention.
type StoreOptions struct {
	LogFileDir     string `json:"logFileDir"`
	LogFileName    string `json:"logFileName"`
	MaxAge         int64  `json:"maxAge"`
	DeleteInterval int64  `json:"deleteInterval"`
	UseCompression bool   `json:"useCompression"`
	// MaxSizeBytes trims the oldest events once stored bytes exceed it.
	// Engines that cannot measure size ignore it.
	MaxSizeBytes int64 `json:"maxSizeBytes,omitempty"`
	// DefaultTag is the tag untagged events match in queries.
	DefaultTag string `json:"defaultTag,omitempty"`
}

// Path joins the directory and file name, substituting defaultName when the
// file name is empty.
func (o StoreOptions) Path(defaultName string) string {
	name := o.LogFileName
	if name == "" {
		name = defaultName
	}
	dir := o.LogFileDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}

// MaxAgeDuration returns MaxAge as a duration.
func (o StoreOptions) MaxAgeDuration() time.Duration {
	return time.Duration(o.MaxAge) * time.Second
}

// DeleteIntervalDuration returns DeleteInterval as a duration.
func (o StoreOptions) DeleteIntervalDuration() time.Duration {
	return time.Duration(o.DeleteInterval) * time.Second
}

// EffectiveDefaultTag returns DefaultTag or the package default.
func (o StoreOptions) EffectiveDefaultTag() string {
	if o.DefaultTag == "" {
		return DefaultTag
	}
	return o.DefaultTag
}
