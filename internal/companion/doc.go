// Package companion talks to the browser-tools companion server: the signed
// identity probe used by discovery and the explicit connection test, and the
// wipe-logs endpoint.
package companion
