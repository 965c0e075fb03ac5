package bookflow

// Version is overridden at build time with -ldflags "-X github.com/aretw0/bookflow.Version=...".
var Version = "0.1.0"
