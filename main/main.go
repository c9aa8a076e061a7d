package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"sort"
	"strings"
	"time"

	plt "github.com/phil-mansfield/pyplot"

	"github.com/phil-mansfield/neighbors/box"
	"github.com/phil-mansfield/neighbors/io"
	"github.com/phil-mansfield/neighbors/locality"
	"github.com/phil-mansfield/neighbors/metrics"
)

const (
	// Maximum number of points drawn in the distance plot.
	plotPoints = 1<<10
)

var NumCores int

type FileGroup struct {
	log, prof *os.File
}

func (fg *FileGroup) Close() {
	if fg.log != nil {
		err := fg.log.Close()
		if err != nil { log.Fatal(err.Error()) }
	}

	if fg.prof != nil {
		pprof.StopCPUProfile()
		err := fg.prof.Close()
		if err != nil { log.Fatal(err.Error()) }
	}
}

func main() {
	var query, exampleConfig string
	vars := map[string]*string {
		"Query": &query,
		"ExampleConfig": &exampleConfig,
	}

	flag.StringVar(
		&query, "Query", "",
		"Configuration file for [Query] mode.",
	)
	flag.StringVar(
		&exampleConfig,
		"ExampleConfig", "", "Prints an example configuration file of the " +
			"specified type to stdout. The only accepted argument is 'Query'.",
	)
	flag.IntVar(
		&NumCores, "Threads", runtime.NumCPU(),
		"Number of goroutines used for queries.",
	)

	flag.Parse()

	modeName, err := getModeName(vars)
	if err != nil { log.Fatal(err.Error()) }

	switch modeName {
	case "Query":
		wrap, err := io.ReadQueryConfig(query)
		if err != nil { log.Fatal(err.Error()) }
		con := &wrap.Query

		if !con.ValidInput() {
			log.Fatal("Invalid/non-existent 'Input' value.")
		} else if !con.ValidOutput() {
			log.Fatal("Invalid/non-existent 'Output' value.")
		} else if !con.ValidInputFormat() {
			log.Fatal("'InputFormat' must be one of [Text | Binary].")
		} else if !con.ValidColumns() {
			log.Fatal("Invalid column index.")
		}

		b, err := wrap.Box.Box()
		if err != nil { log.Fatal(err.Error()) }
		args, err := con.Args()
		if err != nil { log.Fatal(err.Error()) }

		queryMain(con, b, args)

	case "ExampleConfig":
		switch exampleConfig {
		case "Query":
			fmt.Println(io.ExampleQueryFile)
		default:
			log.Fatal(
				"Unrecognized 'ExampleConfig' argument. The only recognized " +
					"argument is 'Query'.",
			)
		}
	default:
		panic("Impossible")
	}
}

func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" { setNames = append(setNames, name) }
	}

	if len(setNames) == 0 {
		return "", fmt.Errorf("No flags have been set.")
	}

	if len(setNames) > 1 {
		sort.Strings(setNames)
		return "", fmt.Errorf(
			"The following flags were set: %s, but neighbors " +
				"only accepts one flag at a time.",
			strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}

func queryMain(con *io.QueryConfig, b *box.Box, args locality.Args) {
	fg := &FileGroup{}
	defer fg.Close()

	var err error
	if con.ValidLogFile() {
		fg.log, err = os.Create(con.LogFile)
		if err != nil { log.Fatal(err.Error()) }
		log.SetOutput(fg.log)
	}

	log.Println("Running Query main.")

	if con.ValidProfileFile() {
		fg.prof, err = os.Create(con.ProfileFile)
		if err != nil { log.Fatal(err.Error()) }
		err = pprof.StartCPUProfile(fg.prof)
		if err != nil { log.Fatal(err.Error()) }
	}

	rec := metrics.NewRecorder()

	t := time.Now()
	cat, err := readCatalog(con)
	if err != nil { log.Fatal(err.Error()) }
	rec.ObserveStage("read", t)
	rec.SetPoints(cat.Len())
	log.Printf("Read %d particles from %s.", cat.Len(), con.Input)

	t = time.Now()
	var nq *locality.AABBQuery
	if cat.Types != nil {
		nq, err = locality.NewTypedAABBQuery(b, cat.Points, cat.Types)
	} else {
		nq, err = locality.NewAABBQuery(b, cat.Points)
	}
	if err != nil { log.Fatal(err.Error()) }
	rec.ObserveStage("build", t)

	t = time.Now()
	nl, err := locality.ComputeSelfNeighborList(nq, args, NumCores)
	if err != nil { log.Fatal(err.Error()) }
	rec.ObserveStage("query", t)
	rec.ObserveList(args.Mode, nl)
	log.Printf(
		"Found %d bonds for %d particles in %s mode.",
		nl.Len(), nl.NumRefs, args.Mode,
	)

	t = time.Now()
	if err = io.WriteBondsFile(con.Output, nl); err != nil {
		log.Fatal(err.Error())
	}
	rec.ObserveStage("write", t)

	if con.ValidMetricsFile() {
		if err = rec.WriteTextfile(con.MetricsFile); err != nil {
			log.Fatal(err.Error())
		}
	}

	if con.ValidPlotFile() {
		plotDistances(nl, args.Mode, con.PlotFile)
		plt.Execute()
	}
}

func readCatalog(con *io.QueryConfig) (*io.Catalog, error) {
	if con.IsBinary() { return io.ReadBinaryCatalog(con.Input) }
	return io.ReadTextCatalog(
		con.Input, [3]int{con.XColumn, con.YColumn, con.ZColumn},
		con.TypeColumn,
	)
}

// plotDistances plots the cumulative distribution of bond lengths.
func plotDistances(nl *locality.NeighborList, mode locality.Mode, fname string) {
	ds := nl.Distances()
	if len(ds) == 0 {
		log.Println("No bonds were found, so no plot was made.")
		return
	}
	sort.Float64s(ds)

	stride := len(ds) / plotPoints
	if stride < 1 { stride = 1 }
	xs, ys := []float64{}, []float64{}
	for i := 0; i < len(ds); i += stride {
		xs = append(xs, ds[i])
		ys = append(ys, float64(i + 1) / float64(len(ds)))
	}
	xs = append(xs, ds[len(ds) - 1])
	ys = append(ys, 1)

	plt.Figure()
	plt.Plot(xs, ys, "k", plt.LW(2))
	plt.Title(fmt.Sprintf(
		"%s query: %d bonds, %d particles", mode, nl.Len(), nl.NumRefs,
	))
	plt.XLabel(`$r$`, plt.FontSize(16))
	plt.YLabel(`$N(<r)/N$`, plt.FontSize(16))
	plt.YLim(0, 1.05)
	plt.Grid(plt.Axis("y"))
	plt.SaveFig(fname)
}
