package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/asticode/go-astikit"
	"github.com/pkg/profile"

	"github.com/siftool/tspsi"
)

var (
	ctx, cancel     = context.WithCancel(context.Background())
	cpuProfiling    = flag.Bool("cp", false, "if yes, cpu profiling is enabled")
	memoryProfiling = flag.Bool("mp", false, "if yes, memory profiling is enabled")
	tableTypes      = astikit.NewFlagStrings()
	format          = flag.String("f", "", "the format (json or text)")
	inputPath       = flag.String("i", "", "the input path (file path or udp://host:port)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s <packets|default>:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Var(tableTypes, "t", "the table whitelist (all, pat, cat, pmt, nit, sdt, bat, eit, tdt, tot)")
	cmd := astikit.FlagCmd()
	flag.Parse()

	handleSignals()

	if *cpuProfiling {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	} else if *memoryProfiling {
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	r, err := buildReader(ctx)
	if err != nil {
		log.Fatal(fmt.Errorf("tsiprobe: building input reader failed: %w", err))
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}

	store := tspsi.NewStore()
	defer store.Free()
	dmx := tspsi.NewDemuxer(ctx, r, store.Filters())

	switch cmd {
	case "packets":
		if err := packets(dmx); err != nil {
			log.Fatal(fmt.Errorf("tsiprobe: dumping packets failed: %w", err))
		}
	default:
		if err := dmx.Run(); err != nil {
			log.Fatal(fmt.Errorf("tsiprobe: running demuxer failed: %w", err))
		}
		report(store)
	}
}

func handleSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch)
	go func() {
		for s := range ch {
			if s != syscall.SIGURG {
				log.Printf("received signal %s\n", s)
			}
			switch s {
			case syscall.SIGABRT, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM:
				cancel()
				return
			}
		}
	}()
}

func buildReader(ctx context.Context) (io.Reader, error) {
	if len(*inputPath) == 0 {
		return nil, errors.New("use -i to indicate an input path")
	}

	u, err := url.Parse(*inputPath)
	if err != nil {
		return nil, fmt.Errorf("parsing input path failed: %w", err)
	}

	switch u.Scheme {
	case "udp":
		addr, err := net.ResolveUDPAddr("udp", u.Host)
		if err != nil {
			return nil, fmt.Errorf("resolving udp addr %s failed: %w", u.Host, err)
		}
		c, err := net.ListenMulticastUDP("udp", nil, addr)
		if err != nil {
			return nil, fmt.Errorf("listening on multicast udp addr %s failed: %w", u.Host, err)
		}
		c.SetReadBuffer(4096)
		return c, nil
	default:
		f, err := os.Open(*inputPath)
		if err != nil {
			return nil, fmt.Errorf("opening %s failed: %w", *inputPath, err)
		}
		return f, nil
	}
}

func packets(dmx *tspsi.Demuxer) error {
	log.Println("fetching packets...")
	for {
		p, err := dmx.NextPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("getting next packet failed: %w", err)
		}
		log.Printf("PKT: PID %d | CC %d | PUSI %v | has payload %v | has adaptation field %v\n",
			p.Header.PID, p.Header.ContinuityCounter, p.Header.PayloadUnitStartIndicator,
			p.Header.HasPayload, p.Header.HasAdaptationField)
	}
}

func wants(tableType string) bool {
	if _, ok := tableTypes.Map["all"]; ok {
		return true
	}
	_, ok := tableTypes.Map[tableType]
	return ok
}

// report dumps the store's current contents, filtered by the -t
// whitelist. A live stream is a moving target -- this prints the
// snapshot as of the moment the reader hit EOF (a file) or ctx was
// canceled (a UDP multicast feed).
func report(s *tspsi.Store) {
	switch *format {
	case "json":
		dumpJSON(s)
	default:
		dumpText(s)
	}
}

func dumpJSON(s *tspsi.Store) {
	out := struct {
		PAT   *tspsi.PATData             `json:"pat,omitempty"`
		CAT   *tspsi.CATData             `json:"cat,omitempty"`
		PMT   map[uint16]*tspsi.PMTData  `json:"pmt,omitempty"`
		NIT   *tspsi.NITData             `json:"nit_actual,omitempty"`
		SDT   *tspsi.SDTData             `json:"sdt_actual,omitempty"`
		BAT   *tspsi.BATData             `json:"bat,omitempty"`
		EIT   *tspsi.EITSummary          `json:"eit,omitempty"`
		TDT   *tspsi.TDTData             `json:"tdt,omitempty"`
		TOT   *tspsi.TOTData             `json:"tot,omitempty"`
		Stats tspsi.Stats                `json:"stats"`
	}{Stats: s.Stats}

	if wants("pat") {
		out.PAT = s.PAT
	}
	if wants("cat") {
		out.CAT = s.CAT
	}
	if wants("pmt") {
		out.PMT = s.PMT
	}
	if wants("nit") {
		out.NIT = s.NITActual
	}
	if wants("sdt") {
		out.SDT = s.SDTActual
	}
	if wants("bat") {
		out.BAT = s.BAT
	}
	if wants("eit") {
		out.EIT = s.EIT
	}
	if wants("tdt") {
		out.TDT = s.TDT
	}
	if wants("tot") {
		out.TOT = s.TOT
	}

	e := json.NewEncoder(os.Stdout)
	e.SetIndent("", "  ")
	if err := e.Encode(out); err != nil {
		log.Fatal(fmt.Errorf("tsiprobe: json encoding to stdout failed: %w", err))
	}
}

func dumpText(s *tspsi.Store) {
	if wants("pat") && s.PAT != nil {
		fmt.Printf("PAT: transport_stream_id %d, version %d\n", s.PAT.TransportStreamID, s.PAT.VersionNumber)
		for _, p := range s.PAT.Programs {
			fmt.Printf("  program %d -> PMT PID %d\n", p.ProgramNumber, p.ProgramMapPID)
		}
	}
	if wants("cat") && s.CAT != nil {
		fmt.Printf("CAT: version %d, %d descriptors\n", s.CAT.VersionNumber, len(s.CAT.Descriptors))
	}
	if wants("pmt") {
		for pid, p := range s.PMT {
			fmt.Printf("PMT PID %d: program %d, PCR PID %d\n", pid, p.ProgramNumber, p.PCRPID)
			for _, es := range p.Streams {
				fmt.Printf("  * elementary PID %d, stream_type 0x%02x\n", es.ElementaryPID, es.StreamType)
			}
		}
	}
	if wants("nit") {
		if s.NITActual != nil {
			fmt.Printf("NIT actual: network %d, %d transport streams\n", s.NITActual.NetworkID, len(s.NITActual.TransportStreams))
		}
		if s.NITOther != nil {
			fmt.Printf("NIT other: network %d, %d transport streams\n", s.NITOther.NetworkID, len(s.NITOther.TransportStreams))
		}
	}
	if wants("sdt") {
		if s.SDTActual != nil {
			fmt.Printf("SDT actual: %d services\n", len(s.SDTActual.Services))
			for _, svc := range s.SDTActual.Services {
				fmt.Printf("  * service %d, running status %d\n", svc.ServiceID, svc.RunningStatus)
			}
		}
		if s.SDTOther != nil {
			fmt.Printf("SDT other: %d services\n", len(s.SDTOther.Services))
		}
	}
	if wants("bat") && s.BAT != nil {
		fmt.Printf("BAT: bouquet %d, %d transport streams\n", s.BAT.BouquetID, len(s.BAT.TransportStreams))
	}
	if wants("eit") && s.EIT != nil {
		fmt.Printf("EIT: last service %d on transport stream %d\n", s.EIT.ServiceID, s.EIT.TransportStreamID)
	}
	if wants("tdt") && s.TDT != nil {
		fmt.Printf("TDT: %s\n", s.TDT.UTCTime)
	}
	if wants("tot") && s.TOT != nil {
		fmt.Printf("TOT: %s, %d descriptors\n", s.TOT.UTCTime, len(s.TOT.Descriptors))
	}
	fmt.Printf("stats: %+v\n", s.Stats)
}
