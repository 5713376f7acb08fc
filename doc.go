// Package qrseal seals short messages to a recipient's public key and
// carries them over a visual channel: a sequence of QR codes or plain
// text that is copied by hand. There is no network path between the two
// parties and no retransmission, so every chunk is checksummed and a
// message only opens once all of its chunks are scanned.
//
// Each party holds one keypair, generated on first use. Messages use a
// hybrid construction: a KEM (X25519 by default, or ML-KEM-768)
// establishes a fresh key per message, HKDF-SHA-512 derives the AES-256-GCM
// key, and the framed header is authenticated together with the ciphertext.
//
// Basic usage:
//
//	storage, err := qrseal.NewFileStorage("/path/to/state")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := qrseal.New(storage)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Share this text (as a QR code) with contacts
//	myKey, _ := client.PublicKeyText()
//
//	// Seal a message to a contact's public key text
//	chunks, err := client.Seal(theirKey, []byte("hello"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Render each of chunks as a QR code...
//
// On the receiving side every scanned text is fed to a Receiver:
//
//	receiver := client.NewReceiver()
//	for _, text := range scanned {
//	    result, err := receiver.Scan(text)
//	    if errors.Is(err, qrseal.ErrChecksumMismatch) {
//	        // ask the user to rescan this code
//	        continue
//	    }
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if result.Complete {
//	        fmt.Println(string(result.Plaintext))
//	    }
//	}
package qrseal
