// Package tail follows log files and turns appended lines into records.
//
// A Follower watches the file's parent directory with fsnotify, reads new
// bytes on every write event and calls its callback once per complete line.
// Truncation restarts reading at offset zero; a create event on the path
// (rotation by rename) reopens the file from the beginning.
//
// ForSource(src, q) binds a configured source to the shipper queue.
package tail
