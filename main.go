package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/quic-go/quic-go"

	"github.com/yomorun/yomo/config"
	"github.com/yomorun/yomo/connections"
	"github.com/yomorun/yomo/connector"
	"github.com/yomorun/yomo/limiter"
	"github.com/yomorun/yomo/logging"
	"github.com/yomorun/yomo/sfn"
	"github.com/yomorun/yomo/tlsconfig"
	"github.com/yomorun/yomo/zipper"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "run":
		runSfn(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  yomo serve [--config PATH]")
	fmt.Fprintln(os.Stderr, "  yomo run --name NAME --zipper HOST:PORT [--credential CRED] [--tls-ca PATH] [--tls-mutual] [--tls-insecure] [--bandwidth-limit BYTES] [SERVERLESS_DIR]")
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "yomo.yaml", "path to the zipper YAML config file")
	fs.Parse(args)

	cfg, err := config.LoadZipperConfig(*configPath)
	if err != nil {
		log.Fatalf("serve: load config: %v", err)
	}

	logging.Setup(cfg.Log)

	z := zipper.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := z.Serve(ctx); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func runSfn(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	name := fs.String("name", "", "sfn name to register with the zipper")
	zipperAddr := fs.String("zipper", "", "zipper host:port")
	credential := fs.String("credential", "", "handshake credential")
	tlsCA := fs.String("tls-ca", "", "path to CA certificate")
	tlsCert := fs.String("tls-cert", "", "path to client certificate (mutual TLS)")
	tlsKey := fs.String("tls-key", "", "path to client key (mutual TLS)")
	tlsMutual := fs.Bool("tls-mutual", false, "require mutual TLS")
	tlsInsecure := fs.Bool("tls-insecure", false, "skip server certificate verification")
	bandwidthLimit := fs.Int64("bandwidth-limit", 0, "cap subprocess throughput in bytes/sec (0 disables)")
	fs.Parse(args)

	if *name == "" || *zipperAddr == "" {
		usage()
		os.Exit(1)
	}

	serverlessDir := "."
	if fs.NArg() > 0 {
		serverlessDir = fs.Arg(0)
	}

	tlsCfg, err := tlsconfig.Client(tlsconfig.Config{
		CACert:   *tlsCA,
		Cert:     *tlsCert,
		Key:      *tlsKey,
		Mutual:   *tlsMutual,
		Insecure: *tlsInsecure,
	})
	if err != nil {
		log.Fatalf("run: build tls config: %v", err)
	}

	supervisor := sfn.NewSupervisor()

	go func() {
		if err := supervisor.Run(serverlessDir); err != nil {
			log.Fatalf("run: serverless subprocess: %v", err)
		}
	}()

	var l *limiter.Limiter
	if *bandwidthLimit > 0 {
		l = limiter.New(*bandwidthLimit)
	}
	downstream := func() (connector.Connector, error) {
		if l != nil {
			return supervisor.Connector().WithWrap(l.WrapConn), nil
		}
		return supervisor.Connector(), nil
	}

	// Mirror the zipper's own stream caps and keep the connection alive so an
	// idle sfn doesn't get reaped for inactivity between requests.
	quicCfg := &quic.Config{
		KeepAlivePeriod:       connections.IdleTimeout / 3,
		MaxIncomingStreams:    connections.MaxStreamsPerConnection,
		MaxIncomingUniStreams: -1,
	}

	client, err := sfn.Dial(context.Background(), *zipperAddr, *name, *credential, tlsCfg, quicCfg, downstream)
	if err != nil {
		log.Fatalf("run: %v", err)
	}

	client.Serve()
}
