/*
Package resilience guards calls to optional collaborators with a circuit
breaker.

The sidecar API of a running OpenCode process may be absent, still booting,
or gone after the process exits. Repeated failures open the breaker so
callers fall back immediately instead of waiting on dead sockets.

# Usage

	breaker := resilience.New("sidecar", resilience.Settings{
		FailureThreshold: 5,
		OpenTimeout:      10 * time.Second,
	})

	ok, err := resilience.Execute(breaker, func() (bool, error) {
		return client.Ping()
	})

# States

	Closed --[threshold failures]-> Open --[timeout]-> Half-Open --[probe ok]-> Closed
	                                                       |
	                                                 [probe fails]
	                                                       v
	                                                      Open
*/
package resilience
