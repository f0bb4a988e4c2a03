package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// Defaults.
const (
	DefaultService = "_boardmesh._tcp"
	DefaultTimeout = 2 * time.Second
)

// AdvertiseConfig configures an Advertiser.
type AdvertiseConfig struct {
	// Instance is the advertised instance name. Empty uses the hostname.
	Instance string
	Service  string
	Port     int
	// Info is published as TXT records.
	Info   []string
	Logger *slog.Logger
}

// Advertiser publishes the server on the local network until Shutdown.
type Advertiser struct {
	server   *mdns.Server
	instance string
}

// Advertise starts answering mDNS queries for cfg.Service.
func Advertise(cfg AdvertiseConfig) (*Advertiser, error) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}
	if cfg.Instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		cfg.Instance = host
	}
	if len(cfg.Info) == 0 {
		cfg.Info = []string{"BoardMesh"}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	service, err := mdns.NewMDNSService(cfg.Instance, cfg.Service, "", "", cfg.Port, nil, cfg.Info)
	if err != nil {
		return nil, fmt.Errorf("create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{
		Zone:   service,
		Logger: slog.NewLogLogger(logger.Handler(), slog.LevelDebug),
	})
	if err != nil {
		return nil, fmt.Errorf("start mDNS server: %w", err)
	}
	return &Advertiser{server: server, instance: cfg.Instance}, nil
}

// Instance returns the advertised instance name.
func (a *Advertiser) Instance() string { return a.instance }

// Shutdown stops answering queries.
func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Server is one discovered BoardMesh server.
type Server struct {
	Instance string   `json:"instance"`
	Host     string   `json:"host"`
	Addr     string   `json:"addr"`
	Port     int      `json:"port"`
	Info     []string `json:"info,omitempty"`
}

// URL returns the HTTP base URL of s.
func (s Server) URL() string {
	return "http://" + net.JoinHostPort(s.Addr, strconv.Itoa(s.Port))
}

// BrowseConfig configures Browse.
type BrowseConfig struct {
	Service string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Browse queries the local network for servers until the timeout elapses
// or ctx is done. Results are sorted by instance and deduplicated.
func Browse(ctx context.Context, cfg BrowseConfig) ([]Server, error) {
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	collected := make(chan []Server, 1)
	go func() {
		seen := make(map[string]Server)
		for e := range entries {
			if s, ok := fromEntry(e, cfg.Service); ok {
				seen[s.Addr+"|"+strconv.Itoa(s.Port)] = s
			}
		}
		collected <- sortServers(seen)
	}()

	params := mdns.DefaultParams(cfg.Service)
	params.Entries = entries
	params.Timeout = cfg.Timeout
	params.DisableIPv6 = true
	params.Logger = slog.NewLogLogger(logger.Handler(), slog.LevelDebug)

	err := mdns.QueryContext(ctx, params)
	close(entries)
	servers := <-collected
	if err != nil {
		return servers, fmt.Errorf("mDNS query: %w", err)
	}
	return servers, nil
}

// fromEntry converts a response entry. Entries without an IPv4 address
// or port, and entries for other services, are skipped.
func fromEntry(e *mdns.ServiceEntry, service string) (Server, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Server{}, false
	}
	instance := e.Name
	suffix := "." + strings.Trim(service, ".") + "."
	if i := strings.Index(instance, suffix); i >= 0 {
		instance = instance[:i]
	} else if service != "" && !strings.Contains(e.Name, service) {
		return Server{}, false
	}
	return Server{
		Instance: unescape(instance),
		Host:     strings.TrimSuffix(e.Host, "."),
		Addr:     e.AddrV4.String(),
		Port:     e.Port,
		Info:     e.InfoFields,
	}, true
}

// unescape removes DNS label escaping from an instance name.
func unescape(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}

func sortServers(m map[string]Server) []Server {
	out := make([]Server, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Instance != out[j].Instance {
			return out[i].Instance < out[j].Instance
		}
		return out[i].URL() < out[j].URL()
	})
	return out
}
