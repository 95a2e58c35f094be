package constants

// This is set during compilation.  See build_and_package.sh in the ops repo
var Version = "latest"

// SourceApp is attached to every log entry written by the ipcoding loggers.
const SourceApp = "ipcoding"

// Confidence assigned to every code produced by the deterministic derivation path.
const DeterministicConfidence = 1.0
