package repo

import "stronglink/session"

// Options configures a Repo at construction. It is the single point
// where ambient configuration (paths, registration policy, cache
// sizing, logging) is plumbed in; loading it from a file or flags is
// the caller's concern, not Repo's.
type Options struct {
	// DataDir roots both the KV index and the blob store on disk.
	DataDir string

	// RegistrationMode is the capability mode granted to accounts
	// created via Session.CreateUser. A zero mode closes registration.
	RegistrationMode session.Mode

	// SessionCacheSize bounds how many live sessions the cache pools
	// before evicting the least recently used. A value <= 0 defaults
	// to 1024.
	SessionCacheSize int
}

func (o Options) sessionCacheSize() int {
	if o.SessionCacheSize > 0 {
		return o.SessionCacheSize
	}
	return 1024
}
