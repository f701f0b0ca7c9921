// Package asset materializes the images referenced by exported documents.
//
// Downloader fetches a list of AssetRef values into a directory. The
// existence of the destination file is the completion marker: a file that is
// already present is reported as skipped and never fetched again, so running
// an export twice transfers nothing the second time.
//
// Files are written through WriteFileAtomic, which streams into a temporary
// file in the destination directory and renames it into place, so a failed
// transfer never leaves a truncated image behind.
//
// Inspector reads EXIF metadata from downloaded JPEG and TIFF files to flag
// images that embed GPS coordinates or device serial numbers.
package asset
