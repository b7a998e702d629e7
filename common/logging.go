package common

// glog verbosity levels
const (
	SHORT   = 4
	DEBUG   = 5
	VERBOSE = 6
)
