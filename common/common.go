// Package common holds process-wide build metadata and logger setup shared by the commands.
package common

// PackageName is used as the metrics namespace and the default service name.
const PackageName = "qkd_transfer"

// Version is set at build time with -ldflags "-X github.com/ruteri/qkd-transfer-backend/common.Version=...".
var Version = "dev"
