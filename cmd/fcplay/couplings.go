/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"flag"
	"io/ioutil"
	"log"
	"net/http"
	"time"

	"github.com/Comcast/fcurve/sio"
	"github.com/Comcast/fcurve/sio/siomq"
	"github.com/Comcast/fcurve/sio/siows"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// NewStdCouplings makes Stdio couplings.  With nil args, only the
// FlagSet is returned.
func NewStdCouplings(args []string) (*sio.Stdio, *flag.FlagSet) {
	var (
		fs = flag.NewFlagSet("std", flag.ExitOnError)

		tags       = fs.Bool("tags", false, "Prefix output lines with a tag")
		padTags    = fs.Bool("pad-tags", false, "Pad tags")
		timestamps = fs.Bool("ts", false, "Prefix output lines with a timestamp")
		echo       = fs.Bool("echo", false, "Echo input lines")
		frames     = fs.Bool("frames", false, "Write one JSON array per frame")
	)

	if args == nil {
		return nil, fs
	}

	fs.Parse(args)

	s := sio.NewStdio()
	s.Tags = *tags
	s.PadTags = *padTags
	s.Timestamps = *timestamps
	s.EchoInput = *echo
	s.Frames = *frames

	return s, fs
}

// NewMQTTCouplings makes MQTT couplings.  With nil args, only the
// FlagSet is returned.
func NewMQTTCouplings(args []string) (*siomq.Couplings, *flag.FlagSet) {
	var (
		// Follow mosquitto_pub command line args where we can.

		fs = flag.NewFlagSet("mq", flag.ExitOnError)

		broker    = fs.String("h", getenv("FCPLAY_BROKER", "tcp://localhost:1883"), "Broker URL")
		clientID  = fs.String("i", "fcplay", "Client id")
		userName  = fs.String("u", "", "Username")
		password  = fs.String("P", "", "Password")
		reconnect = fs.Bool("reconnect", false, "Automatically attempt to reconnect")
		quiesce   = fs.Int("quiesce", 100, "Disconnection quiescence (in milliseconds)")

		certFilename = fs.String("cert", "", "Optional cert filename")
		keyFilename  = fs.String("key", "", "Optional key filename")
		insecure     = fs.Bool("insecure", false, "Skip broker cert checking")
		caFilename   = fs.String("cafile", "", "Optional CA cert filename")

		topic     = fs.String("t", getenv("FCPLAY_TOPIC", "fcurve"), "Sample topic (TOPIC or TOPIC:QOS)")
		perCurve  = fs.Bool("per-curve", false, "Publish each curve to TOPIC/CURVE")
		retain    = fs.Bool("r", false, "Retain samples")
		control   = fs.String("control", "", "Optional command topic (TOPIC or TOPIC:QOS)")
		inTimeout = fs.Duration("in-timeout", time.Second, "Timeout for in-bound queuing")
	)

	if args == nil {
		return nil, fs
	}

	fs.Parse(args)

	opts := siomq.NewClientOptions(*broker, *clientID, *userName, *password)
	opts.AutoReconnect = *reconnect

	tlsConf := &tls.Config{
		InsecureSkipVerify: *insecure,
	}
	if *caFilename != "" {
		rootCAs, _ := x509.SystemCertPool()
		if rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}
		certs, err := ioutil.ReadFile(*caFilename)
		if err != nil {
			log.Fatalf("couldn't read '%s': %s", *caFilename, err)
		}
		if ok := rootCAs.AppendCertsFromPEM(certs); !ok {
			log.Println("No certs appended, using system certs only")
		}
		tlsConf.RootCAs = rootCAs
	}
	if *keyFilename != "" {
		cert, err := tls.LoadX509KeyPair(*certFilename, *keyFilename)
		if err != nil {
			log.Fatal(err)
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}
	opts.SetTLSConfig(tlsConf)

	c := siomq.NewCouplings(mqtt.NewClient(opts), *topic)
	c.Quiesce = uint(*quiesce)
	c.PerCurve = *perCurve
	c.Retain = *retain
	c.ControlTopic = *control
	c.InTimeout = *inTimeout

	return c, fs
}

// WebSocketCouplings serves a siows.Server over HTTP for as long as
// the player runs.
type WebSocketCouplings struct {
	*siows.Server

	Addr string
	Path string

	httpd *http.Server
}

// NewWebSocketCouplings makes WebSocket couplings.  With nil args,
// only the FlagSet is returned.
func NewWebSocketCouplings(args []string) (*WebSocketCouplings, *flag.FlagSet) {
	c := &WebSocketCouplings{}
	fs := flag.NewFlagSet("ws", flag.ExitOnError)
	fs.StringVar(&c.Addr, "addr", getenv("FCPLAY_WS", ":8080"), "Listen address")
	fs.StringVar(&c.Path, "path", "/frames", "WebSocket path")
	backlog := fs.Int("backlog", 16, "Frames queued per client")
	if args == nil {
		return nil, fs
	}
	fs.Parse(args)

	c.Server = siows.NewServer()
	c.Server.Backlog = *backlog
	return c, fs
}

// Start starts the HTTP server.
func (c *WebSocketCouplings) Start(ctx context.Context) error {
	if err := c.Server.Start(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(c.Path, c.Server)
	c.httpd = &http.Server{
		Addr:    c.Addr,
		Handler: mux,
	}

	go func() {
		log.Printf("listening on %s%s", c.Addr, c.Path)
		if err := c.httpd.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("httpd: %v", err)
		}
	}()

	return nil
}

// Stop disconnects clients and stops the HTTP server.
func (c *WebSocketCouplings) Stop(ctx context.Context) error {
	if err := c.Server.Stop(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.httpd.Shutdown(ctx)
}
