// Command display-emulator runs the emulated display behind a TCP
// listener so the wire protocol can be exercised by hand:
//
//	go run ./cmd/tools/display-emulator -addr localhost:9600
//	nc localhost 9600
//
// Send "0" to read the dimension report, paint with "1,x,y,r,g,b", and
// leave the connection idle past the untether gap to watch playback
// take over. One connection at a time, like a physical cable.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net"
	"os/signal"
	"syscall"

	"github.com/orbview/satgrid/internal/device/emulator"
	"github.com/orbview/satgrid/internal/playback"
)

func main() {
	addr := flag.String("addr", "localhost:9600", "Listen address")
	width := flag.Int("width", 32, "Matrix width in pixels")
	height := flag.Int("height", 16, "Matrix height in pixels")
	area := flag.String("area", "", "Home area slug for playback tier selection")
	dataDir := flag.String("data", "", "Playback store directory (in-memory when empty)")
	flag.Parse()

	opts := emulator.Options{Width: *width, Height: *height, HomeArea: *area}
	if *dataDir != "" {
		opts.Store = playback.NewStore(nil, *dataDir)
	}
	emu, err := emulator.New(opts)
	if err != nil {
		log.Fatalf("Failed to create emulator: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := emu.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("emulator error: %v", err)
		}
	}()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", *addr, err)
	}
	defer ln.Close()

	// Closing the listener unblocks Accept on shutdown.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Printf("Emulated %dx%d display listening on %s", *width, *height, *addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				log.Print("Shutting down...")
				return
			}
			log.Printf("accept failed: %v", err)
			continue
		}
		serve(conn, emu)
		st := emu.Status()
		log.Printf("host disconnected; device %s, tier %s, view %s", st.State, st.Tier, st.View)
	}
}

// serve wires one connection to the device until the host hangs up.
func serve(conn net.Conn, emu *emulator.Emulator) {
	log.Printf("host connected from %s", conn.RemoteAddr())
	defer conn.Close()

	// Device-to-host pump. The emulated port's Read paces itself when
	// idle, so polling here does not spin.
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 512)
		for {
			select {
			case <-stop:
				return
			default:
			}
			n, err := emu.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}
			if _, err := conn.Write(buf[:n]); err != nil {
				return
			}
		}
	}()

	if _, err := io.Copy(emu, conn); err != nil {
		log.Printf("read from host: %v", err)
	}
	close(stop)
	<-done
}
