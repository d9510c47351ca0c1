package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ Registry           = (*MemoryRegistry)(nil)
	_ NotificationOutbox = (*MemoryOutbox)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
