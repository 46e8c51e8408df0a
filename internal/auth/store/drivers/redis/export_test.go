package redis

// SetBeforeDelete installs a hook that runs after DeleteStale has judged a
// record stale and before it removes it.
func (r *Revocations) SetBeforeDelete(f func(key string)) { r.beforeDelete = f }
