/*
Copyright 2016 Stanislav Liberman

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package logbuffer

import "fmt"

// CorruptLog signals that a raw tail (or other cross-process field) was
// observed in a state the single-writer protocol cannot produce on its
// own — e.g. a term id that does not match what the writer expects. The
// only single-writer explanation is a corrupted log, which spec'd
// behavior treats as fatal rather than recoverable.
func CorruptLog(format string, args ...interface{}) {
	panic(fmt.Sprintf("logbuffer: corrupt log detected: "+format, args...))
}
