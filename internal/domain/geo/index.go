package geo

import (
	"math"
	"sort"
	"sync"
)

// Hit es un resultado de búsqueda espacial.
type Hit struct {
	ID       string
	Distance float64 // metros
}

// Predicate filtra ids antes de medir distancia (p.ej. solo animales available).
// nil = acepta todo.
type Predicate func(id string) bool

// pequeño margen para que el redondeo no deje fuera puntos del borde del casquete
const boundEpsilon = 1e-9

// Index es un índice espacial en memoria sobre una grilla de celdas de 1°x1°.
// La grilla solo preselecciona candidatos; la pertenencia al radio se decide
// siempre con Distance (geodésica), así que el resultado es exacto.
type Index struct {
	mu     sync.RWMutex
	points map[string]Point
	cells  map[int]map[int]map[string]struct{} // fila lat -> columna lng -> ids
}

func NewIndex() *Index {
	return &Index{
		points: make(map[string]Point),
		cells:  make(map[int]map[int]map[string]struct{}),
	}
}

// Upsert inserta o mueve el punto de un id.
func (ix *Index) Upsert(id string, p Point) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.points[id]; ok {
		ix.unlink(id, old)
	}
	ix.points[id] = p

	row, col := cellOf(p)
	cols, ok := ix.cells[row]
	if !ok {
		cols = make(map[int]map[string]struct{})
		ix.cells[row] = cols
	}
	ids, ok := cols[col]
	if !ok {
		ids = make(map[string]struct{})
		cols[col] = ids
	}
	ids[id] = struct{}{}
}

func (ix *Index) Remove(id string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if old, ok := ix.points[id]; ok {
		ix.unlink(id, old)
		delete(ix.points, id)
	}
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.points)
}

// Within devuelve los ids a distancia <= radiusMeters de origin, ordenados por
// distancia ascendente (empate por id).
func (ix *Index) Within(origin Point, radiusMeters float64, pred Predicate) []Hit {
	if radiusMeters < 0 || !origin.Valid() {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := make([]Hit, 0)
	visit := func(id string) {
		if pred != nil && !pred(id) {
			return
		}
		d := Distance(origin, ix.points[id])
		if d <= radiusMeters {
			hits = append(hits, Hit{ID: id, Distance: d})
		}
	}

	ang := radiusMeters/EarthRadiusMeters + boundEpsilon // radianes
	if ang >= math.Pi/2 {
		for id := range ix.points {
			visit(id)
		}
		sortHits(hits)
		return hits
	}

	minLat := origin.Lat - toDeg(ang)
	maxLat := origin.Lat + toDeg(ang)

	// Si el casquete toca un polo, todas las longitudes son candidatas.
	fullLng := minLat <= -90 || maxLat >= 90
	var dLng float64
	if !fullLng {
		s := math.Sin(ang) / math.Cos(toRad(origin.Lat))
		if s >= 1 {
			fullLng = true
		} else {
			dLng = toDeg(math.Asin(s)) + boundEpsilon
		}
	}

	rowLo, _ := cellOf(Point{Lat: math.Max(minLat, -90)})
	rowHi, _ := cellOf(Point{Lat: math.Min(maxLat, 90)})

	colLo := int(math.Floor(origin.Lng - dLng))
	colHi := int(math.Floor(origin.Lng + dLng))
	if colHi-colLo+1 >= 360 {
		fullLng = true
	}

	for row := rowLo; row <= rowHi; row++ {
		cols, ok := ix.cells[row]
		if !ok {
			continue
		}
		if fullLng {
			for _, ids := range cols {
				for id := range ids {
					visit(id)
				}
			}
			continue
		}
		seen := make(map[int]struct{}, colHi-colLo+1)
		for k := colLo; k <= colHi; k++ {
			col := normCol(k)
			if _, dup := seen[col]; dup {
				continue
			}
			seen[col] = struct{}{}
			for id := range cols[col] {
				visit(id)
			}
		}
	}

	sortHits(hits)
	return hits
}

// Nearest devuelve los k ids más cercanos a origin que cumplen pred.
func (ix *Index) Nearest(origin Point, k int, pred Predicate) []Hit {
	if k <= 0 || !origin.Valid() {
		return nil
	}

	ix.mu.RLock()
	hits := make([]Hit, 0, len(ix.points))
	for id, p := range ix.points {
		if pred != nil && !pred(id) {
			continue
		}
		hits = append(hits, Hit{ID: id, Distance: Distance(origin, p)})
	}
	ix.mu.RUnlock()

	sortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func (ix *Index) unlink(id string, p Point) {
	row, col := cellOf(p)
	cols := ix.cells[row]
	if cols == nil {
		return
	}
	ids := cols[col]
	delete(ids, id)
	if len(ids) == 0 {
		delete(cols, col)
	}
	if len(cols) == 0 {
		delete(ix.cells, row)
	}
}

// cellOf: lat=90 cae en la fila 89 y lng=180 en la columna 179.
func cellOf(p Point) (int, int) {
	row := int(math.Floor(p.Lat))
	if row >= 90 {
		row = 89
	}
	col := int(math.Floor(p.Lng))
	if col >= 180 {
		col = 179
	}
	return row, col
}

// normCol lleva una columna fuera de rango a [-180,179] (cruce del antimeridiano).
func normCol(k int) int {
	return ((k+180)%360+360)%360 - 180
}

func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].ID < hits[j].ID
	})
}
