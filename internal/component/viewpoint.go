package component

// Camera marks the viewpoint entity.
type Camera struct {
	FOV float64 // vertical, degrees
}

// AmbientLight is the world-wide ambient light resource.
type AmbientLight struct {
	Color      [3]float64
	Brightness float64
}
