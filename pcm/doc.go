// SPDX-License-Identifier: EPL-2.0

// Package pcm opens an audio file of any supported container and delivers it
// as interleaved signed 16-bit blocks together with its sample rate, channel
// count and length in frames.
//
//	r, err := pcm.Open(ctx, "clip.m4a")
//	if err != nil {
//	    return err // *pcm.DecodeError
//	}
//	defer r.Close()
//
//	for {
//	    block, err := r.NextBlock()
//	    consume(block)
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
//
// A Reader can be restarted with Reset and fast-forwarded with Skip. It never
// writes to the file it reads.
package pcm
