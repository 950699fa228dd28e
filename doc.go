// SPDX-License-Identifier: EPL-2.0

// Package audclip is the audio core of a voice clip app: it decodes clips to
// 16-bit PCM, computes waveform levels for display, and edits clips without
// ever exposing a half-written file.
//
// # Packages
//
//   - pcm reads any supported container as restartable blocks of interleaved
//     int16 samples. WAV, MP3, Ogg Vorbis and AIFF decode natively; M4A and
//     AAC go through ffmpeg.
//   - levels downsamples PCM into decibel bins and their 0..1 display
//     percentages, and caches them in memory or redis.
//   - compose holds a timeline of segments and renders trims, excisions and
//     concatenations through a temp file that is renamed into place.
//   - session runs crop and cut sessions: previews render in the background,
//     only the newest one is staged, and every session ends with exactly one
//     terminal event.
//   - recording captures live audio into a staging WAV while streaming
//     levels, and finalizes the take as a new clip or onto an existing one.
//   - storage uploads committed clips to MinIO.
//
// # Quick Start
//
// Kit wires every package from a config.Config:
//
//	cfg, err := config.Load("audclip.yaml")
//	if err != nil {
//		return err
//	}
//	kit := audclip.New(cfg)
//	defer kit.Close()
//
//	clip := asset.New("memo.wav", "Memo")
//	data := kit.Levels.Generate(ctx, clip, kit.Policy())
//
//	trimmed, err := kit.Composer.Trim(ctx, clip, 2*time.Second, 5*time.Second, "memo_trimmed.wav")
//
// An edit session replaces the clip only when applied:
//
//	mgr := kit.Sessions()
//	defer mgr.Close()
//
//	s, _ := mgr.StartCut(clip)
//	mgr.AdjustCut(s.Original.ID, []compose.TimeRange{{Start: time.Second, End: 2 * time.Second}})
//	res, err := mgr.Apply(ctx, s.Original.ID)
//
// Removal of several ranges always happens from the end of the clip towards
// the start, so each range is interpreted against the original timeline no
// matter in which order it was given.
package audclip
