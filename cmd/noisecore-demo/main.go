package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/unicornultrafoundation/noisecore"
	"github.com/unicornultrafoundation/noisecore/wsconn"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	os.Args = append(os.Args[:1], os.Args[2:]...)

	switch cmd {
	case "identity":
		cmdIdentity()
	case "handshake":
		cmdHandshake()
	case "version":
		fmt.Printf("noisecore-demo %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: noisecore-demo <command> [options]

Commands:
  identity    Show or generate a node identity
  handshake   Run a self-contained initiator/responder handshake and echo demo
  version     Show version
  help        Show this help`)
}

func cmdIdentity() {
	fs := flag.NewFlagSet("identity", flag.ExitOnError)
	path := fs.String("identity", "/etc/noisecore/identity.key", "identity key path")
	generate := fs.Bool("generate", false, "generate new identity")
	fs.Parse(os.Args[1:])

	if *generate {
		id, err := noisecore.GenerateEd25519Identity()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Peer ID:    %s\n", id.PeerID())
		fmt.Printf("Public Key: %s\n", id.PublicKeyHex())
		return
	}

	id, err := noisecore.LoadOrGenerateEd25519Identity(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Peer ID:    %s\n", id.PeerID())
	fmt.Printf("Public Key: %s\n", id.PublicKeyHex())
}

// cmdHandshake runs a complete initiator/responder handshake and a single
// echo round trip, demonstrating the full sequence this module implements.
// With -transport=pipe (the default) the two sides talk over an in-memory
// net.Pipe; with -transport=ws it instead stands up a local WebSocket
// listener and dials it with wsconn, exercising the same handshake and
// channel code over a real socket.
func cmdHandshake() {
	fs := flag.NewFlagSet("handshake", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file (defaults applied for anything omitted)")
	timeout := fs.Duration("timeout", 10*time.Second, "handshake timeout")
	transport := fs.String("transport", "pipe", "transport to demo the channel over: pipe or ws")
	fs.Parse(os.Args[1:])

	var cfg *noisecore.Config
	var err error
	if *configPath != "" {
		cfg, err = noisecore.LoadConfig(*configPath)
	} else {
		cfg = noisecore.DefaultConfig()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	initiatorIdentity, err := noisecore.GenerateEd25519Identity()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	responderIdentity, err := noisecore.GenerateEd25519Identity()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	initiatorStatic, err := noisecore.GenerateStaticKeypair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	responderStatic, err := noisecore.GenerateStaticKeypair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var clientConn, serverConn io.ReadWriteCloser
	switch *transport {
	case "pipe":
		clientConn, serverConn = net.Pipe()
	case "ws":
		clientConn, serverConn, err = dialLoopbackWebSocket(*timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown -transport %q, want pipe or ws\n", *transport)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	type outcome struct {
		result *noisecore.HandshakeResult
		err    error
	}
	initiatorDone := make(chan outcome, 1)
	responderDone := make(chan outcome, 1)

	go func() {
		res, err := noisecore.RunInitiator(ctx, clientConn, initiatorStatic, initiatorIdentity, nil, cfg.NonceEncoding, logger.With("role", "initiator"))
		initiatorDone <- outcome{res, err}
	}()
	go func() {
		res, err := noisecore.RunResponder(ctx, serverConn, responderStatic, responderIdentity, nil, cfg.NonceEncoding, logger.With("role", "responder"))
		responderDone <- outcome{res, err}
	}()

	initRes := <-initiatorDone
	respRes := <-responderDone
	if initRes.err != nil {
		fmt.Fprintf(os.Stderr, "initiator handshake failed: %v\n", initRes.err)
		os.Exit(1)
	}
	if respRes.err != nil {
		fmt.Fprintf(os.Stderr, "responder handshake failed: %v\n", respRes.err)
		os.Exit(1)
	}

	fmt.Printf("initiator sees responder as %s\n", initRes.result.RemotePeerID)
	fmt.Printf("responder sees initiator as %s\n", respRes.result.RemotePeerID)

	initiatorChannel, err := noisecore.NewChannel(clientConn, initRes.result, cfg.ReadTimeoutDuration(), cfg.NonceEncoding, logger.With("role", "initiator"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	responderChannel, err := noisecore.NewChannel(serverConn, respRes.result, cfg.ReadTimeoutDuration(), cfg.NonceEncoding, logger.With("role", "responder"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	message := []byte("hello over a secured channel")
	go func() {
		if _, err := initiatorChannel.Write(message); err != nil {
			logger.Error("write failed", "err", err)
		}
	}()

	buf := make([]byte, len(message))
	if _, err := responderChannel.ReadFull(buf); err != nil {
		fmt.Fprintf(os.Stderr, "read failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("responder received: %q\n", string(buf))

	initiatorChannel.Close()
	responderChannel.Close()
}

// dialLoopbackWebSocket stands up a WebSocket listener on 127.0.0.1 and
// returns both ends of the connection wrapped as io.ReadWriteCloser via
// wsconn, so -transport=ws demonstrates the handshake and secured channel
// running over an actual socket instead of an in-process net.Pipe.
func dialLoopbackWebSocket(dialTimeout time.Duration) (client, server io.ReadWriteCloser, err error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, fmt.Errorf("listen: %w", err)
	}

	upgrader := websocket.Upgrader{}
	accepted := make(chan *websocket.Conn, 1)
	acceptErr := make(chan error, 1)

	httpServer := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ws, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				acceptErr <- err
				return
			}
			accepted <- ws
		}),
	}
	go httpServer.Serve(ln)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	clientConn, err := wsconn.Dial(ctx, "ws://"+ln.Addr().String()+"/noise", nil)
	if err != nil {
		httpServer.Close()
		return nil, nil, fmt.Errorf("dial websocket: %w", err)
	}

	select {
	case ws := <-accepted:
		return clientConn, wsconn.New(ws), nil
	case err := <-acceptErr:
		clientConn.Close()
		httpServer.Close()
		return nil, nil, fmt.Errorf("accept websocket: %w", err)
	case <-ctx.Done():
		clientConn.Close()
		httpServer.Close()
		return nil, nil, ctx.Err()
	}
}
