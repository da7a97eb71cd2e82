package registry

// Usage restricts which programs should accept a given backend.
type Usage uint8

const (
	// UsageServer: the backend can sit behind the HTTP exchange (offer-codes serve).
	UsageServer Usage = 1 << iota
	// UsageDaemon: the backend can sit behind the gRPC store daemon (offer-codes store-serve).
	UsageDaemon

	UsageAny = UsageServer | UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }
