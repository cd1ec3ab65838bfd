// Package otp keeps the one-time codes the development service issues at
// signup, expiring them after a TTL.
package otp
