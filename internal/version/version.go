package version

// Current is the connector release, without a leading "v".
const Current = "0.1.0"
