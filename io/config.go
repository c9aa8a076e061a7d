package io

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/neighbors/box"
	"github.com/phil-mansfield/neighbors/locality"
)

const (
	ExampleQueryFile = `[Box]

#######################
# Required Parameters #
#######################

# Edge lengths of the simulation box. Lz is ignored for 2D boxes.
Lx = 100
Ly = 100
Lz = 100

#######################
# Optional Parameters #
#######################

# Tilt factors for sheared (triclinic) boxes. The box vectors are
# (Lx, 0, 0), (XY*Ly, Ly, 0) and (XZ*Lz, YZ*Lz, Lz). Default is 0.
# XY = 0
# XZ = 0
# YZ = 0

# Periodicity along each axis. Default is true.
# PeriodicX = true
# PeriodicY = true
# PeriodicZ = true

# Set to true if the particles live in the xy-plane. All z values are then
# ignored.
# Is2D = false

[Query]

#######################
# Required Parameters #
#######################

# Particle catalog to read. Every particle is used both as a reference point
# and as a possible neighbor.
Input = path/to/particles.txt
# File which bonds are written to, one "ref neighbor distance" line per bond.
Output = path/to/bonds.txt

# Mode can be set to one of:
# [ Ball | Nearest ]
# Ball finds every particle within RMax. Nearest finds the NumNeighbors
# closest particles.
Mode = Nearest
NumNeighbors = 12

#######################
# Optional Parameters #
#######################

# InputFormat can be set to one of:
# [ Text | Binary ]
# Text catalogs are whitespace separated columns. Binary catalogs are the
# format written by WriteBinaryCatalog. Default is Text.
# InputFormat = Text

# Zero-indexed columns holding positions and, optionally, particle types in
# text catalogs. TypeColumn = -1 means all particles share one type.
# XColumn = 0
# YColumn = 1
# ZColumn = 2
# TypeColumn = -1

# Required for Ball mode. In Nearest mode this is the first search radius
# and defaults to a tenth of the smallest box edge.
# RMax = 2.5

# Factor the search radius grows by in Nearest mode. Must be larger than 1.
# Default is 1.1.
# Scale = 1.1

# Whether a particle is excluded from its own neighbors. Default is true.
# ExcludeSelf = true

# Output files which are useful for profiling and debugging. Generally, there
# isn't a reason to use these unless something goes wrong.
# ProfileFile = prof.out
# LogFile = log.out

# MetricsFile receives query statistics in the Prometheus text format, ready
# for a node_exporter textfile collector.
# MetricsFile = neighbors.prom

# PlotFile receives a plot of the cumulative neighbor distance distribution.
# PlotFile = distances.png`
)

type BoxConfig struct {
	// Required
	Lx, Ly, Lz float64

	// Optional
	XY, XZ, YZ float64
	PeriodicX, PeriodicY, PeriodicZ bool
	Is2D bool
}

// Box converts the configuration into a simulation box.
func (con *BoxConfig) Box() (*box.Box, error) {
	return box.New(
		[3]float64{con.Lx, con.Ly, con.Lz},
		[3]float64{con.XY, con.XZ, con.YZ},
		[3]bool{con.PeriodicX, con.PeriodicY, con.PeriodicZ},
		con.Is2D,
	)
}

type QueryConfig struct {
	// Required
	Input, Output string
	Mode string

	// Optional
	InputFormat string
	XColumn, YColumn, ZColumn, TypeColumn int

	RMax float64
	NumNeighbors int
	Scale float64
	ExcludeSelf bool

	ProfileFile, LogFile string
	MetricsFile, PlotFile string
}

type QueryWrapper struct {
	Box BoxConfig
	Query QueryConfig
}

// DefaultQueryWrapper returns a wrapper with every optional value set to its
// default.
func DefaultQueryWrapper() *QueryWrapper {
	wrap := &QueryWrapper{}

	wrap.Box.PeriodicX = true
	wrap.Box.PeriodicY = true
	wrap.Box.PeriodicZ = true

	wrap.Query.InputFormat = "Text"
	wrap.Query.XColumn = 0
	wrap.Query.YColumn = 1
	wrap.Query.ZColumn = 2
	wrap.Query.TypeColumn = -1
	wrap.Query.RMax = locality.DefaultRMax
	wrap.Query.NumNeighbors = locality.DefaultNumNeighbors
	wrap.Query.Scale = locality.DefaultScale
	wrap.Query.ExcludeSelf = true

	return wrap
}

// ReadQueryConfig reads the given config file on top of the defaults.
func ReadQueryConfig(fname string) (*QueryWrapper, error) {
	wrap := DefaultQueryWrapper()
	if err := gcfg.ReadFileInto(wrap, fname); err != nil {
		return nil, err
	}
	return wrap, nil
}

func (con *QueryConfig) ValidInput() bool {
	if con.Input == "" { return false }
	_, err := os.Stat(con.Input)
	return err == nil
}

func (con *QueryConfig) ValidOutput() bool { return con.Output != "" }

func (con *QueryConfig) ValidMode() bool {
	mode := con.mode()
	return mode == locality.ModeBall || mode == locality.ModeNearest
}

func (con *QueryConfig) ValidInputFormat() bool {
	switch strings.ToLower(strings.Trim(con.InputFormat, " ")) {
	case "text", "binary":
		return true
	}
	return false
}

func (con *QueryConfig) ValidColumns() bool {
	return con.XColumn >= 0 && con.YColumn >= 0 && con.ZColumn >= 0 &&
		con.TypeColumn >= -1
}

// IsBinary returns true if the input catalog is in the binary format.
func (con *QueryConfig) IsBinary() bool {
	return strings.ToLower(strings.Trim(con.InputFormat, " ")) == "binary"
}

func (con *QueryConfig) mode() locality.Mode {
	switch strings.ToLower(strings.Trim(con.Mode, " ")) {
	case "ball":
		return locality.ModeBall
	case "nearest":
		return locality.ModeNearest
	}
	return locality.ModeUnset
}

// Args converts the configuration into query arguments. The arguments are
// validated, so configuration mistakes show up before any file is read.
func (con *QueryConfig) Args() (locality.Args, error) {
	if !con.ValidMode() {
		return locality.Args{}, fmt.Errorf(
			"%w: Mode must be one of [Ball | Nearest]. '%s' is not "+
				"recognized.", locality.ErrConfiguration, con.Mode,
		)
	}

	args := locality.Args{
		Mode: con.mode(), RMax: con.RMax, NumNeighbors: con.NumNeighbors,
		Scale: con.Scale, ExcludeSelf: con.ExcludeSelf,
	}
	if err := args.Validate(); err != nil { return locality.Args{}, err }
	return args, nil
}

func (con *QueryConfig) ValidLogFile() bool { return con.LogFile != "" }
func (con *QueryConfig) ValidProfileFile() bool { return con.ProfileFile != "" }
func (con *QueryConfig) ValidMetricsFile() bool { return con.MetricsFile != "" }
func (con *QueryConfig) ValidPlotFile() bool { return con.PlotFile != "" }
