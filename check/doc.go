// Package check contains the stages of the verification pipeline:
// syntax validation, MX resolution, the SMTP probe session and the
// classifier that turns a probe outcome into a verdict.
// These types can be used directly, but the recommended approach is
// to use the Verifier from the github.com/optimode/mailprobe package.
package check
