// Package identity is the gateway between the admin API and the identity
// provider.
//
// It normalises provider errors (domain errors pass through, the rest
// become ErrUpstream), records user activities, and applies the optional
// fallback policy: with identity.fallback_enabled set, the user list, the
// user and device counts and the activity feed answer with fixed sample
// data when their source fails. The flag is meant for demos; writes never
// fall back.
package identity
