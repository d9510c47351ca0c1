package gologger

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// Channel names for the module's logger hierarchy. Hosts that hand in
// a provider get one named logger per concern instead of a single
// mixed stream.
const (
	ChannelLifecycle = "orderflow.lifecycle"
	ChannelDispatch  = "orderflow.dispatch"
	ChannelInbound   = "orderflow.inbound"
	ChannelStore     = "orderflow.store"
)

// Resolve picks a logger with deterministic precedence: provider over
// direct logger over nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// ForChannel returns the provider's named logger for one of the
// module channels, falling back to nop when the provider is absent.
func ForChannel(provider glog.LoggerProvider, channel string) glog.Logger {
	if provider == nil {
		return glog.Nop()
	}
	return glog.Ensure(provider.GetLogger(channel))
}

// ToJobProvider bridges a glog provider into the go-job provider
// contract so background jobs log through the host's sink.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger bridges a single glog logger into the go-job contract.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves the glog pair then returns the matching
// go-job bridges, so job runners and the lifecycle service share one
// logging configuration.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}
