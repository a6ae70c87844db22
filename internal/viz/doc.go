// Package viz draws a running animation in the terminal and into GIF
// recordings.
//
// An [Observer] paints every tick into a braille canvas and publishes the
// latest frame; [Model] is the Bubble Tea program that displays it and
// turns key presses into controller commands. A [Recorder] paints the same
// scene into paletted images.
//
// # Key Bindings
//
//	Space - Start/stop the animation
//	R     - Reset the current preset
//	0-9   - Reset to a preset
//	I V   - Cycle integrator, toggle relativistic
//	C A B - Cycle collision detector, algorithm, boundary
//	F     - Toggle the grid field
//	+ -   - Change the tick period
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	m M   - Grow or shrink the grid by one cell per axis
//	?     - Show help
package viz
