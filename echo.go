//
//   date  : 2025-06-02
//   author: xjdrew
//

package toytcp

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

const echoBufferSize = 1024

// EchoServer writes back everything a client sends, one goroutine per
// connection.
type EchoServer struct {
	addr   string
	report func(ConnData)

	mu sync.Mutex
	ln *net.TCPListener
}

func NewEchoServer(addr string) *EchoServer {
	return &EchoServer{addr: addr}
}

// Listen binds the listen address. Serve calls it when needed.
func (s *EchoServer) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return nil
	}

	addr, err := net.ResolveTCPAddr("tcp", s.addr)
	if err != nil {
		return err
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		logger.Errorf("[echo] listen failed: %v", err)
		return err
	}
	s.ln = ln
	logger.Infof("[echo] listen on %v", ln.Addr())
	return nil
}

// Addr returns the bound address, nil before Listen.
func (s *EchoServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *EchoServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

func (s *EchoServer) handleConn(conn *net.TCPConn) {
	defer conn.Close()

	remoteAddr := conn.RemoteAddr()
	data := ConnData{
		Src: remoteAddr.(*net.TCPAddr).IP.String(),
		Dst: remoteAddr.String(),
	}

	buffer := make([]byte, echoBufferSize)
	for {
		n, err := conn.Read(buffer)
		if n > 0 {
			logger.Debugf("[echo] received data from %s: %q", remoteAddr, buffer[:n])
			data.Upload += int64(n)

			if _, werr := conn.Write(buffer[:n]); werr != nil {
				logger.Errorf("[echo] write to %s failed: %v", remoteAddr, werr)
				break
			}
			data.Download += int64(n)
		}

		if err != nil {
			if err == io.EOF {
				logger.Debugf("[echo] connection closed by %s", remoteAddr)
			} else {
				logger.Errorf("[echo] read from %s failed: %v", remoteAddr, err)
			}
			break
		}
	}

	logger.Debugf("[echo] %s upload %v bytes, download %v bytes", remoteAddr, data.Upload, data.Download)
	if s.report != nil {
		s.report(data)
	}
}

func (s *EchoServer) Serve() error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	for {
		conn, err := ln.AcceptTCP()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Infof("[echo] listener closed")
				return nil
			}
			logger.Errorf("[echo] accept failed temporary: %v", err)
			time.Sleep(time.Second) //prevent log storms
			continue
		}
		logger.Debugf("[echo] accepted connection from %s", conn.RemoteAddr())
		go s.handleConn(conn)
	}
}
