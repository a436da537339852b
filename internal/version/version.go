package version

// AppVersion is overridden at build time with -ldflags "-X ...".
var AppVersion = "0.3.0"
