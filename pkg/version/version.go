package version

// Version is the release string reported at startup. Overridden at build
// time with -ldflags "-X riddlecut/pkg/version.Version=...".
var Version = "v0.1.0"
