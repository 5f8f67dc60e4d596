// Package extract reads package definition files and turns them into records.
//
// Definition files are matched line by line against a fixed set of field
// patterns. They are never evaluated, so anything computed at load time in
// the original file (interpolated strings, conditionals) is invisible here.
package extract
