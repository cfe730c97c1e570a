// Package testutil contains helper fakes used across tests to reduce
// boilerplate when driving the control loop without a live reasoning provider
// or host side effects. They are not intended for production usage.
package testutil
