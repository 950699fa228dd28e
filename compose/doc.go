// SPDX-License-Identifier: EPL-2.0

/*
Package compose edits clips by building a timeline of source segments and
rendering it to a new file.

A Composition is a list of segments over one or more decodable files. Edits
only change the list; nothing is decoded until Composer renders it:

	c := compose.New()
	cropped, err := c.Trim(ctx, clip, 2*time.Second, 5*time.Second,
		asset.CroppedPath(dir, clip.ID, "wav"))

Excise removes several ranges at once. The ranges are given in the clip's
original timeline and are always removed latest first, whatever order the
caller passes them in.

Output containers are fixed per operation (see PresetFor): crop and cut
previews stay lossless WAV, normalized recordings and exports are AAC in
M4A, appends keep the existing clip's container. M4A output needs ffmpeg.

Renders go to a hidden temporary file in the destination directory and are
renamed into place only when complete. A failed or cancelled render returns
a *CompositionError and leaves no file behind.
*/
package compose
