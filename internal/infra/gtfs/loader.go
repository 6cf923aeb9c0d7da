// Package gtfs builds route polylines from a GTFS feed's trips.txt and
// shapes.txt.
package gtfs

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"overlay/internal/domain/entity"
	"overlay/internal/errors"
)

// Points closer than ~1 m collapse to one during deduplication.
const dedupePrecision = 1e5

// Loader reads route geometries from a GTFS directory.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a loader for the GTFS feed at dir.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// Routes returns one polyline per route: the ordered, deduplicated points
// of every shape the route's trips reference. The first trip seen per
// shape decides which route the shape belongs to. Routes are sorted by ID.
func (l *Loader) Routes(ctx context.Context) ([]entity.Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	shapeToRoute, err := l.loadShapeToRoute()
	if err != nil {
		return nil, err
	}
	l.logger.Info("mapped shapes to routes", slog.Int("shapes", len(shapeToRoute)))

	routePoints, err := l.loadRoutePoints(shapeToRoute)
	if err != nil {
		return nil, err
	}

	routes := make([]entity.Route, 0, len(routePoints))
	totalPoints := 0
	for routeID, points := range routePoints {
		unique := dedupePoints(points)
		if len(unique) == 0 {
			continue
		}
		totalPoints += len(unique)
		routes = append(routes, entity.Route{ID: routeID, Points: unique})
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].ID < routes[j].ID })

	l.logger.Info("loaded route shapes",
		slog.Int("routes", len(routes)),
		slog.Int("uniquePoints", totalPoints))

	return routes, nil
}

// loadShapeToRoute reads trips.txt and maps each shape to the route of the
// first trip that references it.
func (l *Loader) loadShapeToRoute() (map[string]string, error) {
	path := filepath.Join(l.dir, "trips.txt")
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := readHeader(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "read header of %s", path)
	}

	shapeCol, ok := header["shape_id"]
	if !ok {
		return nil, errors.Errorf("%s has no shape_id column", path)
	}
	routeCol, ok := header["route_id"]
	if !ok {
		return nil, errors.Errorf("%s has no route_id column", path)
	}

	shapeToRoute := make(map[string]string)
	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, errors.WithStack(readErr)
		}

		shapeID := record[shapeCol]
		if shapeID == "" {
			continue
		}
		if _, seen := shapeToRoute[shapeID]; !seen {
			shapeToRoute[shapeID] = record[routeCol]
		}
	}

	return shapeToRoute, nil
}

type shapeRow struct {
	seq   int
	point orb.Point
}

// loadRoutePoints reads shapes.txt and collects each route's points, with
// every shape's points ordered by shape_pt_sequence and shapes appended in
// the order they first appear in the file.
func (l *Loader) loadRoutePoints(shapeToRoute map[string]string) (map[string]orb.LineString, error) {
	path := filepath.Join(l.dir, "shapes.txt")
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := readHeader(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "read header of %s", path)
	}

	cols := make(map[string]int, 4)
	for _, name := range []string{"shape_id", "shape_pt_lat", "shape_pt_lon", "shape_pt_sequence"} {
		idx, ok := header[name]
		if !ok {
			return nil, errors.Errorf("%s has no %s column", path, name)
		}
		cols[name] = idx
	}

	shapeRows := make(map[string][]shapeRow)
	var shapeOrder []string
	lineNum := 1 // header already consumed

	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, errors.WithStack(readErr)
		}
		lineNum++

		shapeID := record[cols["shape_id"]]
		if _, mapped := shapeToRoute[shapeID]; !mapped {
			continue
		}

		lat, err := strconv.ParseFloat(record[cols["shape_pt_lat"]], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid shape_pt_lat at %s line %d", path, lineNum)
		}
		lon, err := strconv.ParseFloat(record[cols["shape_pt_lon"]], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid shape_pt_lon at %s line %d", path, lineNum)
		}
		seq, err := strconv.Atoi(record[cols["shape_pt_sequence"]])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid shape_pt_sequence at %s line %d", path, lineNum)
		}

		if _, seen := shapeRows[shapeID]; !seen {
			shapeOrder = append(shapeOrder, shapeID)
		}
		shapeRows[shapeID] = append(shapeRows[shapeID], shapeRow{seq: seq, point: orb.Point{lon, lat}})
	}

	routePoints := make(map[string]orb.LineString)
	for _, shapeID := range shapeOrder {
		rows := shapeRows[shapeID]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

		routeID := shapeToRoute[shapeID]
		for _, row := range rows {
			routePoints[routeID] = append(routePoints[routeID], row.point)
		}
	}

	return routePoints, nil
}

// dedupePoints drops points that round to an already-seen coordinate at
// ~1 m precision, keeping first occurrences in order.
func dedupePoints(points orb.LineString) orb.LineString {
	type key struct{ lon, lat float64 }

	seen := make(map[key]struct{}, len(points))
	unique := make(orb.LineString, 0, len(points))
	for _, pt := range points {
		k := key{
			lon: math.Round(pt[0]*dedupePrecision) / dedupePrecision,
			lat: math.Round(pt[1]*dedupePrecision) / dedupePrecision,
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, pt)
	}

	return unique
}

// readHeader consumes the first CSV record and maps column names to their
// positions, tolerating a UTF-8 BOM on the first name.
func readHeader(reader *csv.Reader) (map[string]int, error) {
	record, err := reader.Read()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	header := make(map[string]int, len(record))
	for i, name := range record {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		header[strings.TrimSpace(name)] = i
	}

	return header, nil
}
