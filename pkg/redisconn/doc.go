// Package redisconn provides the Redis client used by the preference
// store: connect with retry and a healthcheck closure.
package redisconn
