// Package testsupport holds helpers shared by package tests: validated test
// configs, file fixtures, directory snapshots, and a throwaway history store.
package testsupport
