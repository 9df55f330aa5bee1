// Package storage is the thumbnail storage manager: the sole owner of
// thumbnail artifact files on disk.
//
// For a clip with id N the artifacts are
//
//	{dir}/N_raw.jpg           transient extracted frame
//	{dir}/N_thumb_sm.jpg      320x180 box
//	{dir}/N_thumb_md.jpg      640x360 box, recorded on the clip
//	{dir}/N_thumb_lg.jpg      1280x720 box
//
// These names are a compatibility contract with existing clip records and
// must not change.
package storage
