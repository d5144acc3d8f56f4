package skein

// Version is the library version. Release builds override it via
// -ldflags "-X github.com/weftworks/skein.Version=...".
var Version = "dev"
