// Package ports defines the interfaces shared between the HTTP adapter, the
// platform layer and components that report their own health.
package ports
