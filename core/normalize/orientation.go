package normalize

// IsLandscape reports whether a page is wider than it is tall. Square pages
// are portrait.
func IsLandscape(width, height float64) bool {
	return width > height
}

// HeaderLabel returns the structural header token for a page orientation.
func HeaderLabel(landscape bool) string {
	if landscape {
		return "#slide"
	}
	return "#page"
}
