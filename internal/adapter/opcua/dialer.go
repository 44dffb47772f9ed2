package opcua

import (
	"context"
	"fmt"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
	"github.com/rs/zerolog"
	"github.com/savushkin-dev/scada-gateway/internal/domain"
)

// Dialer establishes OPC UA sessions. It implements domain.Dialer.
type Dialer struct {
	config DialerConfig
	logger zerolog.Logger
}

// NewDialer creates a dialer with the given configuration.
func NewDialer(config DialerConfig, logger zerolog.Logger) *Dialer {
	return &Dialer{
		config: config.withDefaults(),
		logger: logger.With().Str("component", "opcua-dialer").Logger(),
	}
}

// Connect discovers the server's endpoints, picks the first candidate and
// establishes a session. Discovery and connection happen once per startup
// attempt; there is no reconnect path.
func (d *Dialer) Connect(ctx context.Context, server *domain.Server) (domain.Session, error) {
	logger := d.logger.With().Str("server_id", server.ID).Str("endpoint", server.Endpoint).Logger()

	connectCtx, cancel := context.WithTimeout(ctx, d.config.ConnectTimeout)
	defer cancel()

	endpoint, err := d.resolveEndpoint(connectCtx, server.Endpoint)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("selected", endpoint.EndpointURL).
		Str("security_policy", endpoint.SecurityPolicyURI).
		Msg("Endpoint selected")

	opts := d.clientOptions(server)

	client, err := opcua.NewClient(endpoint.EndpointURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create client: %v", domain.ErrConnectFailed, err)
	}

	if err := client.Connect(connectCtx); err != nil {
		// Release half-open handshakes so failed attempts don't leak
		// server session slots.
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("%w: %v", domain.ErrConnectFailed, err)
	}

	logger.Info().Msg("Connected to OPC UA server")
	return newSession(server.ID, client, d.config, logger), nil
}

// resolveEndpoint performs discovery and applies the selection policy:
// the first candidate returned wins. Candidates are not ranked by security
// level or transport; that is a deliberate policy, not an oversight.
func (d *Dialer) resolveEndpoint(ctx context.Context, discoveryURL string) (*ua.EndpointDescription, error) {
	endpoints, err := opcua.GetEndpoints(ctx, discoveryURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDiscoveryFailed, discoveryURL, err)
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoEndpoints, discoveryURL)
	}
	return endpoints[0], nil
}

// clientOptions builds the gopcua options for a server's security profile.
func (d *Dialer) clientOptions(server *domain.Server) []opcua.Option {
	opts := []opcua.Option{
		opcua.RequestTimeout(d.config.RequestTimeout),
		opcua.SessionTimeout(d.config.SessionTimeout),
		opcua.ApplicationName(d.config.ApplicationName),
		opcua.ApplicationURI(d.config.ApplicationURI),
	}

	if policy := securityPolicyURI(server.Security); policy != ua.SecurityPolicyURINone {
		opts = append(opts,
			opcua.SecurityPolicy(policy),
			opcua.SecurityModeString("SignAndEncrypt"),
		)
	}

	if server.Username != "" {
		opts = append(opts, opcua.AuthUsername(server.Username, server.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}

	return opts
}

// securityPolicyURI maps the configured profile to its OPC UA policy URI.
func securityPolicyURI(policy domain.SecurityPolicy) string {
	switch policy {
	case domain.SecurityPolicyBasic256:
		return ua.SecurityPolicyURIBasic256
	case domain.SecurityPolicyBasic256Sha256:
		return ua.SecurityPolicyURIBasic256Sha256
	default:
		return ua.SecurityPolicyURINone
	}
}
