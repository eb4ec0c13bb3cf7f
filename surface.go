package pano

import (
	"image"
	"math"
)

// Default sphere geometry. 256 world units keeps the mesh comfortably inside
// the far clip plane; 32 segment rings are enough that the equirectangular
// mapping shows no visible faceting at typical fields of view.
const (
	defaultSphereRadius = 256.0
	defaultSphereDetail = 32
)

// VideoSource supplies decoded video frames for texture upload. The host
// player owns decoding; the viewer only asks whether enough data is buffered
// to present and fetches the current frame image when the renderer uploads.
type VideoSource interface {
	// ReadyState reports how much data is buffered at the playback position.
	ReadyState() ReadyState
	// Frame returns the most recently decoded frame, or nil if none exists.
	Frame() image.Image
}

// SphereVertex is one vertex of the playback sphere: a position and the
// equirectangular texture coordinate mapped to it.
type SphereVertex struct {
	Position Vec3
	U, V     float64
}

// PlaybackSurface is the sphere mesh the video texture is projected onto,
// viewed from the inside. The Viewer owns it exclusively: created by Init,
// released by Reset, at most one alive at a time.
type PlaybackSurface struct {
	Radius   float64
	Vertices []SphereVertex
	// Indices describe counter-clockwise triangles as seen from the sphere
	// center, so back-face culling keeps the inward faces.
	Indices []uint16

	video        VideoSource
	textureDirty bool
}

// newPlaybackSurface generates the sphere geometry and binds the video
// texture source. detail is the segment count along each axis of the
// equirectangular grid.
func newPlaybackSurface(video VideoSource, radius float64, detail int) *PlaybackSurface {
	verts, indices := generateSphere(radius, detail)
	return &PlaybackSurface{
		Radius:   radius,
		Vertices: verts,
		Indices:  indices,
		video:    video,
	}
}

// Video returns the texture source backing this surface.
func (s *PlaybackSurface) Video() VideoSource {
	return s.video
}

// MarkTextureDirty flags the video texture for re-upload on the next draw.
// The render step calls this when the source has buffered enough data to
// present a frame.
func (s *PlaybackSurface) MarkTextureDirty() {
	s.textureDirty = true
}

// TakeTextureDirty returns whether the texture needs re-upload and clears
// the flag. Renderers call this once per draw.
func (s *PlaybackSurface) TakeTextureDirty() bool {
	d := s.textureDirty
	s.textureDirty = false
	return d
}

// generateSphere builds a UV sphere as a (detail+1)x(detail+1) vertex grid
// with equirectangular texture coordinates. U wraps once around the equator,
// V runs from the north pole (0) to the south pole (1).
func generateSphere(radius float64, detail int) ([]SphereVertex, []uint16) {
	cols := detail + 1
	rows := detail + 1
	verts := make([]SphereVertex, 0, cols*rows)

	for row := 0; row < rows; row++ {
		v := float64(row) / float64(detail)
		phi := v * math.Pi // polar angle from +Y
		for col := 0; col < cols; col++ {
			u := float64(col) / float64(detail)
			theta := u * 2 * math.Pi
			verts = append(verts, SphereVertex{
				Position: Vec3{
					X: -radius * math.Sin(phi) * math.Cos(theta),
					Y: radius * math.Cos(phi),
					Z: radius * math.Sin(phi) * math.Sin(theta),
				},
				U: u,
				V: v,
			})
		}
	}

	indices := make([]uint16, 0, detail*detail*6)
	for row := 0; row < detail; row++ {
		for col := 0; col < detail; col++ {
			a := uint16(row*cols + col)
			b := a + 1
			c := uint16((row+1)*cols + col)
			d := c + 1
			// Degenerate quads at the poles collapse to single triangles.
			if row > 0 {
				indices = append(indices, a, b, c)
			}
			if row < detail-1 {
				indices = append(indices, b, d, c)
			}
		}
	}
	return verts, indices
}
