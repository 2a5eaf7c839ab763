package zipper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/yomorun/yomo/api"
	"github.com/yomorun/yomo/config"
	"github.com/yomorun/yomo/connections"
	"github.com/yomorun/yomo/connector"
	"github.com/yomorun/yomo/router"
	"github.com/yomorun/yomo/status"
	"github.com/yomorun/yomo/tlsconfig"
)

// Zipper ties the QUIC routing server, the HTTP ingress, and the read-only
// admin API together into one runnable process, mirroring the older
// zipper.rs's Zipper.serve() fan-out over serve_http/serve_quic.
type Zipper struct {
	cfg     *config.ZipperConfig
	router  router.Router
	monitor *status.Monitor
	server  *Server
	ingress *HTTPIngress
	admin   *api.Server
}

// New builds a Zipper from a loaded config.
func New(cfg *config.ZipperConfig) *Zipper {
	r := router.New(cfg.AuthToken)
	monitor := status.New()
	mem := connector.NewMemory(connector.DefaultExternalBufSize, 1024)

	z := &Zipper{
		cfg:     cfg,
		router:  r,
		monitor: monitor,
		server:  NewServer(r, monitor, mem),
		ingress: NewHTTPIngress(mem),
	}

	if cfg.AdminPort != 0 {
		z.admin = api.New(fmt.Sprintf("%s:%d", cfg.Host, cfg.AdminPort), monitor, nil)
	}

	return z
}

// Serve runs the QUIC server, HTTP ingress, memory-routing loop, and
// optional admin API until ctx is canceled.
func (z *Zipper) Serve(ctx context.Context) error {
	tlsCfg, err := tlsconfig.Server(z.cfg.TLS)
	if err != nil {
		return fmt.Errorf("zipper: build tls config: %w", err)
	}

	idleTimeout := z.cfg.IdleTimeout.Duration()
	if idleTimeout <= 0 {
		idleTimeout = connections.IdleTimeout
	}

	quicCfg := &quic.Config{
		MaxIdleTimeout:     idleTimeout,
		KeepAlivePeriod:    z.cfg.KeepAliveInterval.Duration(),
		MaxIncomingStreams: connections.MaxStreamsPerConnection,
		// Unidirectional streams carry no part of this protocol; a negative
		// limit is required to actually refuse them (0 still permits the
		// quic-go default).
		MaxIncomingUniStreams: -1,
	}

	go z.server.ServeMemory()

	z.monitor.StartPeriodicLogging(15 * time.Second)

	if z.admin != nil {
		if err := z.admin.Start(); err != nil {
			return fmt.Errorf("zipper: start admin api: %w", err)
		}
		defer z.admin.Stop()
	}

	httpAddr := fmt.Sprintf("%s:%d", z.cfg.Host, z.cfg.HTTPPort)
	httpSrv := &http.Server{Addr: httpAddr, Handler: z.ingress.Router()}
	go func() {
		log.Printf("zipper: http ingress listening on %s", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("zipper: http ingress error: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	quicAddr := fmt.Sprintf("%s:%d", z.cfg.Host, z.cfg.QuicPort)
	return z.server.Serve(ctx, quicAddr, tlsCfg, quicCfg)
}
