// Package types defines the Creation record, generation modes, the storage
// ports shared by the Artifact Store and Credential Resolver, and the error
// kinds surfaced to the presentation layer.
package types
