// Package common holds the pieces shared by the library and the command line:
// the logger factory plugged into dragonboat's logger facade and the client
// configuration read by the commands.
//
// Logging:
//
//	Every package obtains its logger by name, e.g. logger.GetLogger("dlock").
//	InitLoggers installs the factory of this package and sets the level of all
//	dlock loggers at once. Lines have the form "LEVEL | name | message" and
//	are written to stderr.
//
// Configuration:
//
//	ClientConfig carries the ZooKeeper endpoints, the session timeout, optional
//	digest credentials and the log level. Validate reports configurations that
//	cannot be used to dial a session.
package common
