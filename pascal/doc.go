/*
Package pascal reads and writes Apple Pascal (UCSD p-System) volumes.

A Pascal volume is flat: block 2 starts the volume directory, a 26-byte
header followed by 26-byte file entries, normally filling blocks 2 through
5. Each file is a single contiguous run of blocks [start, next), and the
directory keeps entries in ascending block order. There is no allocation
bitmap; free space is whatever lies between files.

The driver starts in raw mode. PrepareFileAccess scans the directory and
builds the catalog; PrepareRawAccess and Close throw the catalog away, and
every FileEntry handed out before that stops working.
*/
package pascal
