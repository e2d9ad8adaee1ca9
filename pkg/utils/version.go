// Package utils holds small helpers shared by cardstream packages.
package utils

// Build information, stamped at link time with
// -ldflags "-X github.com/papercomputeco/cardstream/pkg/utils.Version=...".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
