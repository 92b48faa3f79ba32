package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/gridswitch/internal/config"
	"github.com/1broseidon/gridswitch/internal/grid"
	"github.com/1broseidon/gridswitch/internal/runtimepath"
)

// Switcher exposes the controller state the IPC server reports on.
type Switcher interface {
	Visible() bool
	Grid() *grid.Grid
	Selected() *grid.Task
	Search() string
	WindowCount() int
}

// Refresher triggers a snapshot rebuild on demand.
type Refresher interface {
	Refresh(full bool)
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	cfg          *config.Config
	cfgMu        sync.RWMutex
	switcher     Switcher
	refresher    Refresher
	startTime    time.Time
	reloadChan   chan struct{}
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(cfg *config.Config, sw Switcher, refresher Refresher, reloadChan chan struct{}) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		cfg:        cfg,
		switcher:   sw,
		refresher:  refresher,
		startTime:  time.Now(),
		reloadChan: reloadChan,
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()

	return nil
}

// acceptLoop accepts incoming connections
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetGrid:
		return s.handleGetGrid()
	case CommandRefresh:
		return s.handleRefresh(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

// handleReload reloads the configuration
func (s *Server) handleReload() *Response {
	log.Println("IPC: Received RELOAD command")

	newCfg, err := config.Load()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}

	s.cfgMu.Lock()
	s.cfg = newCfg
	s.cfgMu.Unlock()

	// Notify the main daemon via channel (non-blocking)
	select {
	case s.reloadChan <- struct{}{}:
	default:
	}

	log.Println("IPC: Config reloaded successfully")

	resp, _ := NewOKResponse(nil)
	return resp
}

// handleGetStatus returns current daemon status
func (s *Server) handleGetStatus() *Response {
	status := StatusData{
		Visible:       s.switcher.Visible(),
		WindowCount:   s.switcher.WindowCount(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

// handleGetGrid serializes the live grid for inspection tooling
func (s *Server) handleGetGrid() *Response {
	data := GridData{
		Visible: s.switcher.Visible(),
		Search:  s.switcher.Search(),
	}

	g := s.switcher.Grid()
	if g != nil {
		selected := s.switcher.Selected()
		data.MruColumn = g.MruColumn
		data.Bounds = rectData(g.Bounds)
		data.Columns = make([]ColumnData, len(g.TasksByColumn))
		for i, col := range g.TasksByColumn {
			cells := make([]*CellData, len(col))
			for j, task := range col {
				if task == nil {
					continue
				}
				cells[j] = &CellData{
					Name:        task.Name,
					Kind:        task.Kind.String(),
					Window:      task.Window,
					ExePath:     task.ExePath,
					BeginsGroup: task.BeginsGroup,
					Selected:    task == selected,
					Rect:        rectData(task.Rect),
				}
			}
			data.Columns[i] = ColumnData{Cells: cells}
		}
	}

	resp, _ := NewOKResponse(data)
	return resp
}

// handleRefresh rebuilds the window snapshot immediately
func (s *Server) handleRefresh(payload json.RawMessage) *Response {
	var req RefreshPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return NewErrorResponse(fmt.Sprintf("Invalid refresh payload: %v", err))
		}
	}

	s.refresher.Refresh(req.Full)

	resp, _ := NewOKResponse(nil)
	return resp
}

func rectData(r grid.Rect) RectData {
	return RectData{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

// GetConfig returns the current config (thread-safe)
func (s *Server) GetConfig() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}
