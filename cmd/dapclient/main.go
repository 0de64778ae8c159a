package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fansqz/dapclient/protocol"
	"github.com/fansqz/dapclient/session"
	"github.com/fansqz/dapclient/utils"
	"github.com/sirupsen/logrus"
)

const Version = "1.0.0"

func main() {
	SetupLogger(os.Getenv("DAPCLIENT_LOG"))
	defer CloseLogger()

	showVersion := flag.Bool("version", false, "Show the version number")
	adapterArgv := flag.String("adapter", "", "Adapter command line, space-separated (e.g. \"dlv dap\")")
	program := flag.String("program", "", "Debuggee program path passed to the adapter's launch request")
	clientID := flag.String("clientID", utils.GetUUID(), "Client id sent in the initialize request")
	ticks := flag.Int("ticks", 100, "Number of ticks to run before printing the store snapshot")
	debugHistory := flag.Bool("debug", false, "Retain raw frames alongside typed handled-response history")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Version: %s\n", Version)
		return
	}
	if *adapterArgv == "" {
		fmt.Println("adapter cannot be empty")
		return
	}
	if *program == "" {
		fmt.Println("program cannot be empty")
		return
	}

	client := session.DefaultClientCapabilities(*clientID, "dapclient", "")
	conn := session.NewConnection(client, *debugHistory)
	orch := session.NewOrchestrator(conn)

	ctx := context.Background()
	opts := &protocol.AdapterSpawnOptions{Argv: strings.Fields(*adapterArgv)}
	if err := orch.BeginSession(ctx, opts, nil, *program); err != nil {
		logrus.Fatalf("[main] begin session: %v", err)
	}

	for i := 0; i < *ticks; i++ {
		drainErrs, pollErr := conn.Tick()
		for _, e := range drainErrs {
			logrus.Debugf("[main] drain: %v", e)
		}
		if pollErr != nil {
			logrus.Errorf("[main] poll: %v", pollErr)
			break
		}
		if conn.State() == session.StateInitialized {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	printSnapshot(conn)

	if err := orch.EndSession(session.EndDisconnect); err != nil {
		logrus.Errorf("[main] end session: %v", err)
		return
	}
	drainEndSession(conn)
}

// drainEndSession ticks the connection until the disconnect/terminate
// response lands (or the orchestrator's watchdog kills the adapter after
// it fails to answer), then waits for the process to exit.
func drainEndSession(conn *session.Connection) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, pollErr := conn.Tick(); pollErr != nil {
			logrus.Debugf("[main] end session poll: %v", pollErr)
			break
		}
		switch conn.State() {
		case session.StateLaunched, session.StateAttached:
			time.Sleep(10 * time.Millisecond)
			continue
		}
		break
	}
	if _, err := conn.Wait(); err != nil {
		logrus.Debugf("[main] adapter wait: %v", err)
	}
}

type snapshot struct {
	State   string   `json:"state"`
	Pid     int      `json:"pid"`
	Threads []thread `json:"threads"`
	Sources []string `json:"sources"`
	Output  []string `json:"output"`
}

type thread struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Unlocked bool   `json:"unlocked"`
}

func printSnapshot(conn *session.Connection) {
	snap := snapshot{State: conn.State().String(), Pid: conn.Pid()}
	for _, t := range conn.Store().Threads() {
		snap.Threads = append(snap.Threads, thread{ID: t.ID, Name: t.Name, Unlocked: t.Unlocked})
	}
	for _, src := range conn.Store().Sources() {
		snap.Sources = append(snap.Sources, src.Path)
	}
	for _, o := range conn.Store().Output() {
		snap.Output = append(snap.Output, o.Output)
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		logrus.Errorf("[main] marshal snapshot: %v", err)
		return
	}
	fmt.Println(string(b))
}
