package asynctimer

// Version is the current asynctimer package version.
var Version = "0.0.0"
