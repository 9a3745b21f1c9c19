// Command qkdclient drives a QKD transfer server from the command line.
//
//	qkdclient key --bits 256
//	qkdclient send --file report.pdf
//	qkdclient info --id <transfer id>
//	qkdclient fetch --id <transfer id> [--plaintext] [--out path]
//	qkdclient decrypt --file report.pdf.enc --key-hex ... --iv-b64 ...
//
// send fetches a fresh key unless --key-hex is given, encrypts the file with a
// random IV and uploads it as <name>.enc.
package main
