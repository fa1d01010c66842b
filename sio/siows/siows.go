/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

// Package siows couples a Player to WebSocket clients.
//
// Server is an http.Handler.  Every connected client gets every frame
// as a JSON array of samples, and anything a client sends is a
// command.
package siows

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/Comcast/fcurve/sio"
	"github.com/Comcast/fcurve/util"

	"github.com/gorilla/websocket"
)

// Server is an sio.Couplings.
type Server struct {
	Upgrader websocket.Upgrader

	// Backlog is the number of frames queued for each client.  A
	// client that falls further behind misses frames.
	Backlog int

	sync.Mutex
	clients map[*client]bool

	in  chan string
	out chan []sio.Sample
	ctx  context.Context
	wg   sync.WaitGroup
	done chan struct{}
	once sync.Once
}

var _ sio.Couplings = (*Server)(nil)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewServer makes a Server.
func NewServer() *Server {
	return &Server{
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		Backlog: 16,
		clients: make(map[*client]bool),
		in:      make(chan string),
		out:     make(chan []sio.Sample),
		ctx:     context.Background(),
		done:    make(chan struct{}),
	}
}

// Start remembers the context, which ends client connections.
func (s *Server) Start(ctx context.Context) error {
	s.Lock()
	s.ctx = ctx
	s.Unlock()
	return nil
}

// IO returns the command and sample channels and starts
// broadcasting.
func (s *Server) IO(ctx context.Context) (chan string, chan []sio.Sample, error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.broadcast(ctx)
	}()
	return s.in, s.out, nil
}

// Stop waits for broadcasting to finish and disconnects clients.
func (s *Server) Stop(ctx context.Context) error {
	s.wg.Wait()
	s.once.Do(func() { close(s.done) })
	s.Lock()
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
	s.Unlock()
	return nil
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.Lock()
	defer s.Unlock()
	return len(s.clients)
}

func (s *Server) broadcast(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case samples, ok := <-s.out:
			if !ok {
				return
			}
			js, err := json.Marshal(samples)
			if err != nil {
				log.Printf("siows: marshal error %v", err)
				continue
			}
			s.Lock()
			for c := range s.clients {
				select {
				case c.send <- js:
				default:
					util.Logf("siows: client %s is behind", c.conn.RemoteAddr())
				}
			}
			s.Unlock()
		}
	}
}

func (s *Server) remove(c *client) {
	s.Lock()
	if s.clients[c] {
		delete(s.clients, c)
		close(c.send)
	}
	s.Unlock()
}

// ServeHTTP upgrades the request and serves the client until it
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.Logf("siows: upgrade error %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, s.Backlog),
	}

	s.Lock()
	s.clients[c] = true
	ctx := s.ctx
	s.Unlock()

	util.Logf("siows: client %s connected", conn.RemoteAddr())

	go func() {
		for js := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, js); err != nil {
				util.Logf("siows: write error %v", err)
				break
			}
		}
		conn.Close()
	}()

	for {
		_, bs, err := conn.ReadMessage()
		if err != nil {
			util.Logf("siows: client %s gone: %v", conn.RemoteAddr(), err)
			break
		}
		line := strings.TrimSpace(string(bs))
		if line == "" {
			continue
		}
		select {
		case <-ctx.Done():
		case <-s.done:
		case s.in <- line:
		}
	}

	s.remove(c)
}
