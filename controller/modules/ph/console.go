package ph

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const usageLine = "Available commands: setph <low>,<high>, getph, save, load, status"

// Execute runs one console command and returns the reply line(s). Commands
// are case-insensitive. It is called from the loop goroutine, so every
// mutation it performs is serialized with the dosing decisions.
func (c *Controller) Execute(line string) string {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch {
	case strings.HasPrefix(cmd, "setph"):
		return c.execSetPH(cmd)
	case cmd == "getph":
		return fmt.Sprintf("Target pH range: %s", c.bands.Get())
	case cmd == "save":
		if err := c.bands.Save(); err != nil {
			c.tele.EmitCommandError()
			return "Error: save failed: " + err.Error()
		}
		return fmt.Sprintf("pH range saved. Target pH range: %s", c.bands.Get())
	case cmd == "load":
		band, err := c.bands.Load()
		if err != nil {
			c.tele.EmitCommandError()
			return "Error: load failed: " + err.Error()
		}
		return fmt.Sprintf("pH range loaded. Target pH range: %s", band)
	case cmd == "status":
		return c.execStatus()
	default:
		c.tele.EmitCommandError()
		return usageLine
	}
}

// execSetPH parses "setph <low>,<high>". The comma must appear after the
// keyword; anything malformed is rejected and the active band is untouched.
func (c *Controller) execSetPH(cmd string) string {
	invalid := "Invalid setph command. Use 'setph low,high' (e.g., 'setph 6.5,7.5')."
	comma := strings.Index(cmd, ",")
	if comma <= len("setph") {
		c.tele.EmitCommandError()
		return invalid
	}
	low, errLow := strconv.ParseFloat(strings.TrimSpace(cmd[len("setph"):comma]), 32)
	high, errHigh := strconv.ParseFloat(strings.TrimSpace(cmd[comma+1:]), 32)
	if errLow != nil || errHigh != nil {
		c.tele.EmitCommandError()
		return invalid
	}
	if err := c.bands.Set(float32(low), float32(high)); err != nil {
		c.tele.EmitCommandError()
		return "Error: " + err.Error()
	}
	return fmt.Sprintf("pH range saved. Target pH range: %s", c.bands.Get())
}

func (c *Controller) execStatus() string {
	s := c.Status()
	var b strings.Builder
	fmt.Fprintf(&b, "pH: %.2f (%.3f V)\n", s.PH, s.Voltage)
	fmt.Fprintf(&b, "Target pH range: %s\n", s.Band)
	fmt.Fprintf(&b, "Acid valve: %s, base valve: %s\n", onOff(s.AcidActive), onOff(s.BaseActive))
	if s.LastSample.IsZero() {
		b.WriteString("Last sample: never\n")
	} else {
		fmt.Fprintf(&b, "Last sample: %s\n", humanize.Time(s.LastSample))
	}
	fmt.Fprintf(&b, "Up since: %s", humanize.Time(s.StartedAt))
	return b.String()
}

func onOff(active bool) string {
	if active {
		return "open"
	}
	return "closed"
}

// Submit hands a command line to the control loop and waits for the reply.
// The loop drains at most one command per iteration.
func (c *Controller) Submit(line string) string {
	req := request{line: line, respond: make(chan string, 1)}
	select {
	case c.requests <- req:
	case <-time.After(2 * time.Second):
		return "Error: controller busy, try again"
	}
	select {
	case resp := <-req.respond:
		return resp
	case <-time.After(5 * time.Second):
		return "Error: command timed out"
	}
}

// Console is the line-oriented operator interface, served over TCP in place
// of the device's serial port. One reply per newline-terminated command.
type Console struct {
	addr string
	ctrl *Controller
	ln   net.Listener
	quit chan struct{}
}

func NewConsole(addr string, ctrl *Controller) *Console {
	return &Console{addr: addr, ctrl: ctrl, quit: make(chan struct{})}
}

func (s *Console) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	logrus.Infof("console listening on %s", s.addr)
	go s.acceptLoop()
	return nil
}

func (s *Console) Stop() {
	close(s.quit)
	if s.ln != nil {
		s.ln.Close()
	}
}

func (s *Console) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				logrus.Warnf("console accept: %v", err)
				continue
			}
		}
		go s.serve(conn)
	}
}

func (s *Console) serve(conn net.Conn) {
	defer conn.Close()
	fmt.Fprintln(conn, usageLine)
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		fmt.Fprintln(conn, s.ctrl.Submit(scanner.Text()))
	}
}
