// Package category classifies file names into organizer categories.
//
// A Table is an ordered, immutable list of categories loaded once per run,
// either from the embedded default table or from [[categories]] entries in the
// user's configuration. Classification is a pure function of the file name:
// compound suffixes such as ".tar.gz" are checked first, then the final
// extension, and anything unmatched lands in the Others sentinel. When an
// extension appears in several categories the first listed category wins.
package category
