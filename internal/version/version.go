package version

// Current is the released version, without a "v" prefix.
const Current = "0.1.0"
